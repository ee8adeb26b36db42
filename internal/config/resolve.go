// Package config loads layered YAML project configuration, resolves the
// inherits chain with strict merge semantics, substitutes ${NAME}
// placeholders from the environment and extracts the typed project
// sections consumed by the rest of the pipeline.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hdlforge/internal/ctxlog"
	"hdlforge/internal/steptrack"
)

// inheritsKey is the one reserved top-level key. It never survives
// resolution.
const inheritsKey = "inherits"

// StepResolveConfig is the tracker step all resolver diagnostics are
// recorded against.
const StepResolveConfig = "config_resolver::resolve_config"

// Resolver loads and resolves configuration documents. The environment
// map seeds placeholder substitution and is extended by environment_setup
// script output.
type Resolver struct {
	tracker *steptrack.Tracker
	env     map[string]string
}

// NewResolver creates a resolver seeded with the process environment.
func NewResolver(tracker *steptrack.Tracker) *Resolver {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return &Resolver{tracker: tracker, env: env}
}

// SetEnv overrides one substitution variable. Mostly useful in tests.
func (r *Resolver) SetEnv(key, value string) {
	r.env[key] = value
}

// Resolve loads the root document, resolves inheritance, runs any
// environment setup scripts, substitutes placeholders and checks the
// mandatory sections. The returned tree contains no inherits key.
func (r *Resolver) Resolve(ctx context.Context, rootPath string) (*Node, error) {
	log := ctxlog.From(ctx)
	log.Info("resolving configuration", "path", rootPath)

	root, err := r.loadRecursive(rootPath, map[string]bool{})
	if err != nil {
		return nil, err
	}

	if setup := root.Get("environment_setup"); setup != nil {
		if err := r.runEnvironmentSetup(ctx, setup, filepath.Dir(rootPath)); err != nil {
			return nil, err
		}
	}

	if err := r.substitute(ctx, root); err != nil {
		return nil, err
	}

	if err := checkMandatory(root); err != nil {
		return nil, err
	}

	log.Info("configuration resolved", "path", rootPath)
	return root, nil
}

// loadRecursive loads one document and folds its parents in, listed
// order, parents before the child itself.
func (r *Resolver) loadRecursive(path string, visited map[string]bool) (*Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(Malformed, path, "cannot resolve path: %v", err)
	}
	if visited[abs] {
		return nil, newError(Malformed, abs, "circular inheritance")
	}
	visited[abs] = true

	doc, err := loadDocument(abs)
	if err != nil {
		return nil, err
	}

	parents, err := inheritsList(doc, abs)
	if err != nil {
		return nil, err
	}
	doc.Delete(inheritsKey)
	if len(parents) == 0 {
		return doc, nil
	}

	acc := newMap()
	for _, ref := range parents {
		parentPath := ref
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(filepath.Dir(abs), ref)
		}
		branch := make(map[string]bool, len(visited))
		for k, v := range visited {
			branch[k] = v
		}
		parent, err := r.loadRecursive(parentPath, branch)
		if err != nil {
			return nil, err
		}
		acc, err = Merge(acc, parent)
		if err != nil {
			return nil, err
		}
	}
	// The child document merges last so its keys layer over every parent.
	return Merge(acc, doc)
}

func loadDocument(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(NotFound, path, "configuration document not found")
		}
		return nil, &Error{Kind: NotFound, Path: path, Msg: "cannot read document", Err: err}
	}
	var y yaml.Node
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, &Error{Kind: Malformed, Path: path, Msg: "cannot parse YAML", Err: err}
	}
	if y.Kind == 0 {
		// Empty document.
		return newMap(), nil
	}
	node, err := fromYAML(&y)
	if err != nil {
		return nil, &Error{Kind: Malformed, Path: path, Msg: "unsupported document shape", Err: err}
	}
	if node.Kind != KindMap {
		return nil, newError(Malformed, path, "top level must be a mapping, got %s", node.Kind)
	}
	return node, nil
}

// inheritsList normalizes the inherits key to an ordered list of parent
// references.
func inheritsList(doc *Node, path string) ([]string, error) {
	ref := doc.Get(inheritsKey)
	if ref == nil {
		return nil, nil
	}
	switch ref.Kind {
	case KindScalar:
		return []string{ref.Value}, nil
	case KindSequence:
		out := make([]string, 0, len(ref.Items))
		for _, item := range ref.Items {
			if item.Kind != KindScalar {
				return nil, newError(Malformed, path, "inherits entries must be document references")
			}
			out = append(out, item.Value)
		}
		return out, nil
	}
	return nil, newError(Malformed, path, "inherits must be a reference or list of references")
}

// Mandatory sections: project identity and device target.
func checkMandatory(root *Node) error {
	info := root.Get("project_information")
	if info == nil {
		return newError(MissingField, "project_information", "required section is missing")
	}
	required := []struct {
		node *Node
		path string
	}{
		{info.Get("project_name"), "project_information.project_name"},
		{info.Get("top_level_file_name"), "project_information.top_level_file_name"},
		{info.Lookup("device_info", "part_name"), "project_information.device_info.part_name"},
	}
	for _, req := range required {
		if req.node == nil || (req.node.Kind == KindScalar && strings.TrimSpace(req.node.Value) == "") {
			return newError(MissingField, req.path, "required field is missing")
		}
	}
	return nil
}
