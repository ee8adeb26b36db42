// Package pipeline runs the configuration-and-manifest compiler for one
// project: configuration resolution, compile-order classification,
// IP-core dependency restructuring, generic encoding and Tcl script
// generation, with every stage tracked for warnings and errors.
//
// The pipeline halts before the external backend would be invoked if any
// stage finalized with an error.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hdlforge/internal/config"
	"hdlforge/internal/ctxlog"
	"hdlforge/internal/generics"
	"hdlforge/internal/ipcore"
	"hdlforge/internal/manifest"
	"hdlforge/internal/steptrack"
	"hdlforge/internal/tclgen"
)

// Operation is the requested mode of a project run.
type Operation string

const (
	OpOpen   Operation = "open"
	OpBuild  Operation = "build"
	OpExport Operation = "export"
)

// Step identifiers in module::proc form, matching the marker vocabulary
// status aggregation consumes.
const (
	StepReadManifest       = "compile_order::read_manifest"
	StepSetTopLevel        = "handle_source_files::set_top_level"
	StepProcessBDs         = "handle_bds::process_bds"
	StepProcessConstraints = "handle_constraints::process_constraints"
	StepConfigureSynth     = "handle_synth_settings::configure_synth_settings"
	StepApplySynthOptions  = "handle_synth_settings::apply_custom_synth_options"
	StepConfigureImpl      = "handle_impl_settings::configure_impl_settings"
	StepApplyImplOptions   = "handle_impl_settings::apply_custom_impl_options"
	StepGenerateScripts    = "generate_scripts::write_tcl"
)

// Options configure one pipeline run.
type Options struct {
	Operation        Operation
	ProjectDir       string
	ConfigPath       string
	CompileOrderPath string
	Cores            int
}

// Outcome is everything a run produced, whether or not it succeeded.
type Outcome struct {
	Status  steptrack.Status
	Config  *config.ProjectConfig
	Paths   Paths
	Groups  manifest.Groups
	IPCores ipcore.Result
	Scripts []string
}

// Pipeline drives the stages against one tracker. One pipeline instance
// serves one project run.
type Pipeline struct {
	tracker *steptrack.Tracker
}

func New(tracker *steptrack.Tracker) *Pipeline {
	return &Pipeline{tracker: tracker}
}

// Run executes the stages in order. A fatal stage records its error,
// finalizes, and stops the run; recoverable conditions accumulate as
// warnings without stopping anything.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Outcome, error) {
	log := ctxlog.From(ctx)
	out := &Outcome{Paths: NewPaths(opts.ProjectDir, opts.Operation)}
	if opts.Cores < 1 {
		opts.Cores = 1
	}

	if err := out.Paths.Create(); err != nil {
		return out, fmt.Errorf("create operation directories: %w", err)
	}

	// Configuration resolution.
	p.tracker.Begin(config.StepResolveConfig)
	resolver := config.NewResolver(p.tracker)
	tree, err := resolver.Resolve(ctx, opts.ConfigPath)
	if err != nil {
		p.tracker.Errorf(config.StepResolveConfig, "%v", err)
		out.Status = p.finalize(config.StepResolveConfig)
		return out, err
	}
	cfg, err := config.ExtractProject(tree)
	if err != nil {
		p.tracker.Errorf(config.StepResolveConfig, "%v", err)
		out.Status = p.finalize(config.StepResolveConfig)
		return out, err
	}
	out.Config = cfg
	p.finalize(config.StepResolveConfig)
	p.tracker.EmitProjectName(cfg.Name)

	// Compile-order manifest.
	p.tracker.Begin(StepReadManifest)
	var entries []manifest.Entry
	if opts.CompileOrderPath == "" {
		p.tracker.Warnf(StepReadManifest, "no compile order manifest provided, source list will be empty")
	} else if entries, err = manifest.Read(opts.CompileOrderPath); err != nil {
		p.tracker.Errorf(StepReadManifest, "%v", err)
		out.Status = p.finalize(StepReadManifest)
		return out, err
	}
	p.finalize(StepReadManifest)

	// Classification.
	p.tracker.Begin(manifest.StepProcessSources)
	out.Groups = manifest.Classify(ctx, p.tracker, entries)
	p.finalize(manifest.StepProcessSources)

	// Top level must be among the classified sources.
	p.tracker.Begin(StepSetTopLevel)
	if !topLevelPresent(cfg.TopLevelFileName, out.Groups.HDL) {
		p.tracker.Warnf(StepSetTopLevel, "top level %q not found among classified sources", cfg.TopLevelFileName)
	}
	p.finalize(StepSetTopLevel)

	// IP-core dependency restructuring.
	p.tracker.Begin(ipcore.StepProcessXCIs)
	mode := ipcore.ModeRestructure
	if opts.Operation == OpOpen {
		mode = ipcore.ModePassThrough
	}
	out.IPCores, err = ipcore.Restructure(ctx, p.tracker, out.Groups.IPCores, mode, out.Paths.XCIDir)
	if err != nil {
		out.Status = p.finalize(ipcore.StepProcessXCIs)
		return out, err
	}
	p.finalize(ipcore.StepProcessXCIs)

	// Block designs and constraints: existence checks against the
	// configuration document's own directory.
	configDir := filepath.Dir(opts.ConfigPath)

	p.tracker.Begin(StepProcessBDs)
	for _, bd := range cfg.BlockDesigns {
		if !fileExists(bd.File, configDir) {
			p.tracker.Warnf(StepProcessBDs, "block design not found: %s", bd.File)
		}
	}
	p.finalize(StepProcessBDs)

	p.tracker.Begin(StepProcessConstraints)
	for _, c := range cfg.Constraints {
		if !fileExists(c.File, configDir) {
			p.tracker.Warnf(StepProcessConstraints, "constraint file not found: %s", c.File)
		}
	}
	p.finalize(StepProcessConstraints)

	// Synthesis configuration and generics.
	p.tracker.Begin(StepConfigureSynth)
	p.finalize(StepConfigureSynth)

	p.tracker.Begin(StepApplySynthOptions)
	checkOptions(p.tracker, StepApplySynthOptions, cfg.SynthOptions)
	p.finalize(StepApplySynthOptions)

	p.tracker.Begin(generics.StepApplyGenerics)
	encoder := generics.NewEncoder(p.tracker)
	encoded := encoder.EncodeAll(ctx, cfg.Generics)
	p.finalize(generics.StepApplyGenerics)

	p.tracker.Begin(StepConfigureImpl)
	p.finalize(StepConfigureImpl)

	p.tracker.Begin(StepApplyImplOptions)
	checkOptions(p.tracker, StepApplyImplOptions, cfg.ImplOptions)
	p.finalize(StepApplyImplOptions)

	// Script generation from everything collected above.
	p.tracker.Begin(StepGenerateScripts)
	binding := tclgen.NewBinding(cfg, out.Groups, out.IPCores.Sources, encoded)
	binding.ProjectDir = out.Paths.ProjectDir
	binding.ArtefactsDir = out.Paths.ArtefactsDir
	binding.Cores = opts.Cores
	scripts, err := binding.WriteAll(out.Paths.ProjectDir)
	if err != nil {
		p.tracker.Errorf(StepGenerateScripts, "script generation failed: %v", err)
		out.Status = p.finalize(StepGenerateScripts)
		return out, err
	}
	out.Scripts = scripts
	p.finalize(StepGenerateScripts)

	p.tracker.EmitBuildArtefacts(out.Paths.ArtefactsDir)
	out.Status = p.tracker.RunStatus()
	log.Info("pipeline complete", "project", cfg.Name, "status", out.Status.String())
	return out, nil
}

func (p *Pipeline) finalize(step string) steptrack.Status {
	return p.tracker.Finalize(step)
}

// topLevelPresent matches the configured top-level name against the
// classified HDL files by bare file name, with or without extension.
func topLevelPresent(name string, files []manifest.HDLFile) bool {
	if name == "" {
		return false
	}
	for _, f := range files {
		base := filepath.Base(f.Path)
		if base == name || strings.TrimSuffix(base, filepath.Ext(base)) == name {
			return true
		}
	}
	return false
}

func fileExists(path, baseDir string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

func checkOptions(tracker *steptrack.Tracker, step string, options []config.KV) {
	for _, kv := range options {
		if strings.TrimSpace(kv.Key) == "" {
			tracker.Warnf(step, "ignoring option with empty name")
		}
	}
}
