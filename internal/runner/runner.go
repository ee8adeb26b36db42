// Package runner executes pipeline runs for one or more projects. Each
// project run is fully isolated: its own tracker table, its own working
// directories, its own log file. Independent projects may run in
// parallel; nothing is shared between them.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"hdlforge/internal/ctxlog"
	"hdlforge/internal/pipeline"
	"hdlforge/internal/steptrack"
	"hdlforge/internal/vivado"
)

// Candidate configuration file names inside a project directory.
var configFileNames = []string{"hdlforge_config.yaml", "hdlforge_config.yml"}

// compileOrderName is the manifest the external dependency tool leaves
// in the project directory.
const compileOrderName = "compile_order.json"

// Options configure a runner invocation.
type Options struct {
	Operation   pipeline.Operation
	ProjectsDir string
	// Projects are project directory names under ProjectsDir.
	Projects []string
	// ConfigPath overrides project discovery for a single direct run.
	ConfigPath string
	// CompileOrderPath overrides the per-project manifest location.
	CompileOrderPath string
	// VivadoDir is the backend installation root; empty skips launch.
	VivadoDir string
	Cores     int
	// Parallel caps concurrently running projects.
	Parallel int
	Out      io.Writer
}

// ProjectResult is the outcome of one project's run.
type ProjectResult struct {
	Name    string
	Status  steptrack.Status
	LogFile string
	Err     error
}

// Run executes every requested project and reports per-project results.
// The returned error is non-nil when any project finalized with an
// error; individual failures never cancel sibling runs.
func Run(ctx context.Context, opts Options) ([]ProjectResult, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}

	targets, err := resolveTargets(opts)
	if err != nil {
		return nil, err
	}

	results := make([]ProjectResult, len(targets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			res := runOne(gctx, opts, t)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for _, r := range results {
		if r.Err != nil || r.Status == steptrack.StatusError {
			return results, fmt.Errorf("one or more projects failed")
		}
	}
	return results, nil
}

type target struct {
	name         string
	projectDir   string
	configPath   string
	compileOrder string
}

func resolveTargets(opts Options) ([]target, error) {
	if opts.ConfigPath != "" {
		dir := filepath.Dir(opts.ConfigPath)
		return []target{{
			name:         filepath.Base(dir),
			projectDir:   dir,
			configPath:   opts.ConfigPath,
			compileOrder: opts.CompileOrderPath,
		}}, nil
	}

	var targets []target
	for _, name := range opts.Projects {
		dir := filepath.Join(opts.ProjectsDir, name)
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("project directory not found: %s", dir)
		}
		cfg := findConfig(dir)
		if cfg == "" {
			return nil, fmt.Errorf("no configuration file found for project %q in %s", name, dir)
		}
		co := opts.CompileOrderPath
		if co == "" {
			candidate := filepath.Join(dir, compileOrderName)
			if _, err := os.Stat(candidate); err == nil {
				co = candidate
			}
		}
		targets = append(targets, target{name: name, projectDir: dir, configPath: cfg, compileOrder: co})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no projects selected")
	}
	return targets, nil
}

func findConfig(dir string) string {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func runOne(ctx context.Context, opts Options, t target) ProjectResult {
	res := ProjectResult{Name: t.name}
	log := ctxlog.From(ctx).With("project", t.name)
	ctx = ctxlog.WithLogger(ctx, log)

	paths := pipeline.NewPaths(t.projectDir, opts.Operation)
	res.LogFile = paths.LogFile(opts.Operation)

	if err := paths.Create(); err != nil {
		res.Err = err
		res.Status = steptrack.StatusError
		return res
	}
	logFile, err := os.Create(res.LogFile)
	if err != nil {
		res.Err = err
		res.Status = steptrack.StatusError
		return res
	}
	defer logFile.Close()

	// Marker stream goes to the operator and to the project log.
	tracker := steptrack.New(io.MultiWriter(prefixed(opts.Out, t.name), logFile))

	outcome, err := pipeline.New(tracker).Run(ctx, pipeline.Options{
		Operation:        opts.Operation,
		ProjectDir:       t.projectDir,
		ConfigPath:       t.configPath,
		CompileOrderPath: t.compileOrder,
		Cores:            opts.Cores,
	})
	res.Status = outcome.Status
	if err != nil {
		res.Err = err
		return res
	}
	if tracker.HasErrors() {
		// Hard stop: the backend is never invoked after a step error.
		return res
	}

	if opts.Operation == pipeline.OpOpen || opts.VivadoDir == "" {
		return res
	}
	launchBackend(ctx, tracker, logFile, opts, t, outcome)
	res.Status = tracker.RunStatus()
	return res
}

// launchBackend sources the backend environment and runs the generated
// scripts in batch mode. Skipped with a warning when the configured
// backend version is not installed.
func launchBackend(ctx context.Context, tracker *steptrack.Tracker, logW io.Writer, opts Options, t target, outcome *pipeline.Outcome) {
	const step = "vivado_executor::run_batch"
	tracker.Begin(step)
	defer tracker.Finalize(step)

	version := vivado.Version{Year: outcome.Config.VivadoYear, Sub: outcome.Config.VivadoSub}
	if version.Year == "" || version.Sub == "" {
		tracker.Warnf(step, "no backend version configured, skipping launch")
		return
	}
	if !version.Exists(opts.VivadoDir) {
		tracker.Warnf(step, "backend %s not found under %s, skipping launch", version, opts.VivadoDir)
		return
	}

	exe := &vivado.Executor{InstallDir: opts.VivadoDir, Version: version}
	args := vivado.TclArgs(string(opts.Operation), outcome.Paths.ProjectDir, t.projectDir, t.configPath, opts.Cores)
	for _, script := range outcome.Scripts {
		cmd := exe.Command(ctx, script, args)
		result, err := exe.Run(ctx, cmd, logW, nil)
		if err != nil {
			tracker.Errorf(step, "backend invocation failed: %v", err)
			return
		}
		if result.TimingFailed {
			tracker.EmitTiming(false, result.TimingReport)
		} else if result.TimingReport != "" {
			tracker.EmitTiming(true, result.TimingReport)
		}
		if !result.Success {
			tracker.Errorf(step, "backend script %s failed (W:%d E:%d)",
				filepath.Base(script), result.Warnings, result.Errors)
			return
		}
		if result.Warnings > 0 || result.CriticalWarns > 0 {
			tracker.Warnf(step, "backend script %s completed with warnings (W:%d CW:%d)",
				filepath.Base(script), result.Warnings, result.CriticalWarns)
		}
	}
}

// prefixed returns a writer that prepends the project name to every
// line, keeping interleaved parallel output attributable.
func prefixed(w io.Writer, name string) io.Writer {
	return &prefixWriter{w: w, prefix: "[" + name + "] "}
}

type prefixWriter struct {
	w      io.Writer
	prefix string
	mid    bool
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	total := len(b)
	for len(b) > 0 {
		if !p.mid {
			if _, err := io.WriteString(p.w, p.prefix); err != nil {
				return total - len(b), err
			}
			p.mid = true
		}
		i := indexByte(b, '\n')
		if i < 0 {
			_, err := p.w.Write(b)
			return total, err
		}
		if _, err := p.w.Write(b[:i+1]); err != nil {
			return total - len(b), err
		}
		p.mid = false
		b = b[i+1:]
	}
	return total, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
