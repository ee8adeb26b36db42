package pipeline

import (
	"os"
	"path/filepath"
)

// workDirName is the hidden per-project working directory every
// operation writes under.
const workDirName = ".hdlforge"

// Paths are the standardized locations of one operation's outputs.
type Paths struct {
	OperationDir string
	LogsDir      string
	ProjectDir   string
	BDDir        string
	XCIDir       string
	ArtefactsDir string
}

// NewPaths lays out the working directories for an operation under the
// project directory.
func NewPaths(projectDir string, op Operation) Paths {
	opDir := filepath.Join(projectDir, workDirName, string(op))
	return Paths{
		OperationDir: opDir,
		LogsDir:      filepath.Join(opDir, "logs"),
		ProjectDir:   filepath.Join(opDir, "project"),
		BDDir:        filepath.Join(opDir, "bd"),
		XCIDir:       filepath.Join(opDir, "xci"),
		ArtefactsDir: filepath.Join(opDir, "artefacts"),
	}
}

// Create makes every operation directory.
func (p Paths) Create() error {
	for _, dir := range []string{p.LogsDir, p.ProjectDir, p.BDDir, p.XCIDir, p.ArtefactsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// LogFile is the stream log of one operation.
func (p Paths) LogFile(op Operation) string {
	return filepath.Join(p.LogsDir, string(op)+".log")
}

// ProjectFile is the backend project file location.
func (p Paths) ProjectFile(projectName string) string {
	return filepath.Join(p.ProjectDir, projectName+".xpr")
}
