package ipcore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hdlforge/internal/ctxlog"
	"hdlforge/internal/manifest"
	"hdlforge/internal/steptrack"
)

// StepProcessXCIs is the tracker step restructuring diagnostics are
// recorded against.
const StepProcessXCIs = "handle_xcis::process_xcis"

// Mode selects what pass 2 does with the discovered references.
type Mode int

const (
	// ModeRestructure copies descriptors and coefficients into the
	// output root, deduplicating coefficients and rewriting references.
	ModeRestructure Mode = iota
	// ModePassThrough registers originals in place without copying.
	ModePassThrough
)

// sharedCoefficientDir is the single directory all deduplicated
// coefficients land in, relative to the output root.
const sharedCoefficientDir = "coe"

// Result of a restructuring run.
type Result struct {
	DescriptorCount  int
	CoefficientCount int
	// Sources are the files registered for the backend, descriptors and
	// coefficients both, in registration order.
	Sources []string
}

// scanned is one readable descriptor with its optional discovered
// coefficient.
type scanned struct {
	entry   manifest.Entry
	absPath string
	content []byte
	// ref and coeAbs are set only when a reference was found and the
	// coefficient file exists.
	ref    *reference
	coeAbs string
}

// Restructure runs the two-pass dependency resolution over the IP-core
// subset of the compile order.
//
// Pass 1 discovers embedded coefficient references. A descriptor with no
// match or a dangling reference simply carries no mapping; an unreadable
// descriptor is skipped with a warning. Pass 2 materializes according to
// mode. A write failure into the shared directory is fatal: partial
// output from this step is unsafe to use.
func Restructure(ctx context.Context, tracker *steptrack.Tracker, entries []manifest.Entry, mode Mode, outputRoot string) (Result, error) {
	log := ctxlog.From(ctx)

	descriptors := scan(tracker, entries)
	log.Info("scanned ip-core descriptors", "total", len(entries), "readable", len(descriptors))

	if mode == ModePassThrough {
		return passThrough(descriptors), nil
	}
	return materialize(ctx, tracker, descriptors, outputRoot)
}

func scan(tracker *steptrack.Tracker, entries []manifest.Entry) []scanned {
	var out []scanned
	for _, e := range entries {
		abs, err := filepath.Abs(e.Path)
		if err != nil {
			tracker.Warnf(StepProcessXCIs, "cannot resolve descriptor path %s: %v", e.Path, err)
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			tracker.Warnf(StepProcessXCIs, "unreadable descriptor, skipping: %s", e.Path)
			continue
		}
		s := scanned{entry: e, absPath: abs, content: content}
		if ref, ok := findReference(content); ok {
			coeAbs := ref.relPath
			if !filepath.IsAbs(coeAbs) {
				coeAbs = filepath.Join(filepath.Dir(abs), filepath.FromSlash(ref.relPath))
			}
			if _, err := os.Stat(coeAbs); err == nil {
				r := ref
				s.ref = &r
				s.coeAbs = coeAbs
			}
			// A dangling reference is not an error, the descriptor just
			// carries no mapping.
		}
		out = append(out, s)
	}
	return out
}

func passThrough(descriptors []scanned) Result {
	var res Result
	seen := map[string]bool{}
	for _, d := range descriptors {
		res.Sources = append(res.Sources, d.absPath)
		res.DescriptorCount++
		if d.coeAbs != "" && !seen[d.coeAbs] {
			seen[d.coeAbs] = true
			res.Sources = append(res.Sources, d.coeAbs)
			res.CoefficientCount++
		}
	}
	return res
}

func materialize(ctx context.Context, tracker *steptrack.Tracker, descriptors []scanned, outputRoot string) (Result, error) {
	log := ctxlog.From(ctx)
	var res Result

	sharedDir := filepath.Join(outputRoot, sharedCoefficientDir)
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		tracker.Errorf(StepProcessXCIs, "cannot create shared coefficient directory: %v", err)
		return res, fmt.Errorf("shared coefficient directory: %w", err)
	}

	// First writer wins: each distinct coefficient is copied exactly
	// once, in first-seen order.
	destNames := map[string]string{} // coefficient abs path -> name in shared dir
	taken := map[string]string{}     // name in shared dir -> coefficient abs path
	for _, d := range descriptors {
		if d.coeAbs == "" {
			continue
		}
		if _, done := destNames[d.coeAbs]; done {
			continue
		}
		name := filepath.Base(d.coeAbs)
		if owner, clash := taken[name]; clash && owner != d.coeAbs {
			// Distinct files sharing a basename: disambiguate with a
			// stable hash of the source path.
			sum := sha256.Sum256([]byte(d.coeAbs))
			name = fmt.Sprintf("%x_%s", sum[:4], filepath.Base(d.coeAbs))
		}
		data, err := os.ReadFile(d.coeAbs)
		if err != nil {
			tracker.Errorf(StepProcessXCIs, "cannot read coefficient %s: %v", d.coeAbs, err)
			return res, fmt.Errorf("read coefficient: %w", err)
		}
		dest := filepath.Join(sharedDir, name)
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			tracker.Errorf(StepProcessXCIs, "cannot write shared coefficient %s: %v", dest, err)
			return res, fmt.Errorf("write shared coefficient: %w", err)
		}
		destNames[d.coeAbs] = name
		taken[name] = d.coeAbs
		res.Sources = append(res.Sources, dest)
		res.CoefficientCount++
	}

	// Descriptor copies, one subdirectory each. The rewrite replaces the
	// reference span only; the rest of the descriptor stays byte
	// identical, which makes repeated runs reproduce identical output.
	subTaken := map[string]string{} // subdirectory name -> descriptor abs path
	for _, d := range descriptors {
		base := filepath.Base(d.absPath)
		sub := strings.TrimSuffix(base, filepath.Ext(base))
		if owner, clash := subTaken[sub]; clash && owner != d.absPath {
			// Same stem from different directories: disambiguate like
			// colliding coefficient basenames.
			sum := sha256.Sum256([]byte(d.absPath))
			sub = fmt.Sprintf("%x_%s", sum[:4], sub)
		}
		subTaken[sub] = d.absPath
		destDir := filepath.Join(outputRoot, sub)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			tracker.Errorf(StepProcessXCIs, "cannot create descriptor directory %s: %v", destDir, err)
			return res, fmt.Errorf("descriptor directory: %w", err)
		}
		content := d.content
		if d.ref != nil {
			canonical := "../" + sharedCoefficientDir + "/" + destNames[d.coeAbs]
			rewritten := make([]byte, 0, len(content)+len(canonical))
			rewritten = append(rewritten, content[:d.ref.start]...)
			rewritten = append(rewritten, canonical...)
			rewritten = append(rewritten, content[d.ref.end:]...)
			content = rewritten
		}
		dest := filepath.Join(destDir, base)
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			tracker.Errorf(StepProcessXCIs, "cannot write descriptor copy %s: %v", dest, err)
			return res, fmt.Errorf("write descriptor copy: %w", err)
		}
		res.Sources = append(res.Sources, dest)
		res.DescriptorCount++
	}

	log.Info("restructured ip-core dependencies",
		"descriptors", res.DescriptorCount, "coefficients", res.CoefficientCount)
	return res, nil
}
