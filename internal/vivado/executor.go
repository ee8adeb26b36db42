package vivado

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hdlforge/internal/steptrack"
)

// Version identifies one backend installation year/sub pair.
type Version struct {
	Year string
	Sub  string
}

func (v Version) String() string { return v.Year + "." + v.Sub }

// SettingsPath is the environment script of this version under the
// given installation root.
func (v Version) SettingsPath(installDir string) string {
	return filepath.Join(installDir, v.String(), "settings64.sh")
}

// Exists reports whether the installation is present.
func (v Version) Exists(installDir string) bool {
	_, err := os.Stat(v.SettingsPath(installDir))
	return err == nil
}

// TclArgs builds the argument list handed to the batch scripts.
func TclArgs(mode, projectDir, projectRoot, resolvedConfig string, cores int) []string {
	return []string{
		"--mode", mode,
		"--vivado-project-dir", projectDir,
		"--project-root", projectRoot,
		"--cores", strconv.Itoa(cores),
		"--config", resolvedConfig,
	}
}

// Executor launches the backend in batch mode and streams its output
// through the line parser.
type Executor struct {
	InstallDir string
	Version    Version
}

// Command builds the batch invocation for one Tcl script. The settings
// script must be sourced in the same shell, matching how the backend
// expects to be launched.
func (e *Executor) Command(ctx context.Context, script string, tclArgs []string) *exec.Cmd {
	invocation := fmt.Sprintf("source %s && vivado -mode batch -nojournal -source %s -tclargs %s",
		e.Version.SettingsPath(e.InstallDir), script, strings.Join(tclArgs, " "))
	return exec.CommandContext(ctx, "bash", "-c", invocation)
}

// RunResult summarizes one backend invocation.
type RunResult struct {
	Success       bool
	Warnings      int
	CriticalWarns int
	Errors        int
	FailedSteps   []string
	TimingFailed  bool
	TimingReport  string
	ProjectName   string
	ArtefactsDir  string
}

// Run starts the command, copies every output line into logW with a
// timestamp, and aggregates parsed messages. It returns an error only
// for invocation problems; backend failures are reported in the result.
func (e *Executor) Run(ctx context.Context, cmd *exec.Cmd, logW io.Writer, onLine func(Parsed)) (RunResult, error) {
	var res RunResult

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("start backend: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if logW != nil {
			fmt.Fprintf(logW, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05.000"), line)
		}
		p := ParseLine(line)
		aggregate(&res, p)
		if onLine != nil {
			onLine(p)
		}
	}

	waitErr := cmd.Wait()
	res.Success = waitErr == nil &&
		res.Errors == 0 &&
		len(res.FailedSteps) == 0 &&
		!res.TimingFailed
	return res, nil
}

func aggregate(res *RunResult, p Parsed) {
	switch p.Type {
	case MsgError:
		res.Errors++
	case MsgCriticalWarning:
		res.CriticalWarns++
	case MsgWarning:
		res.Warnings++
	case MsgStepUpdate:
		res.Warnings += p.Warnings
		res.Errors += p.Errors
		if p.StepStatus == steptrack.StatusError {
			res.FailedSteps = append(res.FailedSteps, p.StepName)
		}
	case MsgProjectName:
		res.ProjectName = p.ProjectName
	case MsgBuildArtefacts:
		res.ArtefactsDir = p.ArtefactsDir
	case MsgTiming:
		res.TimingReport = p.TimingReport
		if !p.TimingPassed {
			res.TimingFailed = true
		}
	}
}
