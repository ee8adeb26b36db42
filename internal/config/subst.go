package config

import (
	"context"
	"regexp"

	"hdlforge/internal/ctxlog"
)

// Placeholder syntax: uppercase identifier characters and underscores
// only, matching the original configuration contract.
var placeholderRE = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)

// substitute replaces ${NAME} placeholders in every string scalar of the
// tree with values from the resolver environment.
//
// Values of runtime-only generics are exempt so their tokens survive to
// encoding time, where the encoder decides whether to skip them.
//
// An unset variable resolves to the empty string and is reported once as
// a non-fatal diagnostic. Substitution repeats until no placeholder
// remains, handling indirection through variable values; the iteration
// cap (distinct placeholder count plus one) turns a self-referential
// placeholder into a fatal error instead of an endless loop.
func (r *Resolver) substitute(ctx context.Context, root *Node) error {
	log := ctxlog.From(ctx)

	exempt := runtimeOnlyValueNodes(root)
	warned := map[string]bool{}

	distinct := map[string]bool{}
	root.walkScalars("", func(_ string, s *Node) {
		for _, m := range placeholderRE.FindAllStringSubmatch(s.Value, -1) {
			distinct[m[1]] = true
		}
	})
	maxPasses := len(distinct) + 1

	for pass := 0; ; pass++ {
		changed := false
		remaining := false
		root.walkScalars("", func(path string, s *Node) {
			if !s.IsString || exempt[s] {
				return
			}
			if !placeholderRE.MatchString(s.Value) {
				return
			}
			next := placeholderRE.ReplaceAllStringFunc(s.Value, func(tok string) string {
				name := placeholderRE.FindStringSubmatch(tok)[1]
				value, ok := r.env[name]
				if !ok {
					if !warned[name] {
						warned[name] = true
						r.tracker.Warnf(StepResolveConfig,
							"placeholder ${%s} at %s: variable not set, using empty value", name, path)
					}
					return ""
				}
				return value
			})
			if next != s.Value {
				s.Value = next
				changed = true
			}
			if placeholderRE.MatchString(next) {
				remaining = true
			}
		})
		if !remaining {
			break
		}
		if !changed || pass >= maxPasses {
			return newError(UnresolvedPlaceholderLoop, "",
				"placeholder substitution did not converge after %d passes", pass+1)
		}
	}

	log.Debug("placeholder substitution complete", "distinct", len(distinct), "unset", len(warned))
	return nil
}

// runtimeOnlyValueNodes collects the value scalars of generics marked
// runtime_only so substitution leaves their tokens intact.
func runtimeOnlyValueNodes(root *Node) map[*Node]bool {
	out := map[*Node]bool{}
	gens := root.Lookup("project_information", "top_level_generics")
	if gens == nil || gens.Kind != KindMap {
		return out
	}
	for _, name := range gens.Keys() {
		def := gens.Get(name)
		if def == nil || def.Kind != KindMap {
			continue
		}
		if isTruthy(def.Scalar("runtime_only")) {
			if v := def.Get("value"); v != nil && v.Kind == KindScalar {
				out[v] = true
			}
		}
	}
	return out
}

func isTruthy(v string) bool {
	return v == "true" || v == "True" || v == "1" || v == "yes"
}
