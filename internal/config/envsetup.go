package config

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"hdlforge/internal/ctxlog"
)

// runEnvironmentSetup executes the environment_setup scripts of the
// resolved document. Each entry maps an executor (bash, python, ...) to a
// script path relative to the document. Lines of the script's stdout in
// KEY=VALUE form are merged into the substitution environment before
// placeholder substitution runs.
//
// A missing script is a warning; a failing script aborts resolution.
func (r *Resolver) runEnvironmentSetup(ctx context.Context, setup *Node, baseDir string) error {
	if setup.Kind != KindMap {
		return newError(Malformed, "environment_setup", "must be a mapping of executor to script")
	}
	log := ctxlog.From(ctx)

	for _, executor := range setup.Keys() {
		scriptNode := setup.Get(executor)
		if scriptNode == nil || scriptNode.Kind != KindScalar {
			return newError(Malformed, "environment_setup."+executor, "script path must be a scalar")
		}
		script := scriptNode.Value
		if !filepath.IsAbs(script) {
			script = filepath.Join(baseDir, script)
		}
		if _, err := os.Stat(script); err != nil {
			r.tracker.Warnf(StepResolveConfig, "setup script not found: %s", script)
			continue
		}

		log.Info("running environment setup", "executor", executor, "script", script)
		cmd := exec.CommandContext(ctx, executor, script)
		cmd.Dir = baseDir
		out, err := cmd.Output()
		if err != nil {
			return &Error{
				Kind: Malformed,
				Path: "environment_setup." + executor,
				Msg:  "setup script failed: " + script,
				Err:  err,
			}
		}
		r.mergeSetupOutput(string(out))
	}
	return nil
}

// mergeSetupOutput folds KEY=VALUE stdout lines into the substitution
// environment. Comment lines and lines without '=' are ignored.
func (r *Resolver) mergeSetupOutput(out string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		r.env[key] = value
	}
}
