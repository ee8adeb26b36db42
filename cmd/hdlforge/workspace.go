package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const noWorkspaceTomlMessage = "no hdlforge.toml found\nrun from inside a workspace or pass --config with a project configuration file"

// workspaceManifest is a loaded hdlforge.toml plus its location.
type workspaceManifest struct {
	Path   string
	Root   string
	Config workspaceConfig
}

type workspaceConfig struct {
	Workspace workspaceSection `toml:"workspace"`
	Defaults  defaultsSection  `toml:"defaults"`
}

type workspaceSection struct {
	// ProjectsDir holds one subdirectory per project, relative to the
	// workspace root unless absolute.
	ProjectsDir string `toml:"projects_dir"`
	// VivadoDir is the backend installation root.
	VivadoDir string `toml:"vivado_dir"`
}

type defaultsSection struct {
	Cores    int `toml:"cores"`
	Parallel int `toml:"parallel"`
}

// findWorkspaceToml walks up from startDir to locate hdlforge.toml.
func findWorkspaceToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "hdlforge.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadWorkspaceManifest(startDir string) (*workspaceManifest, bool, error) {
	manifestPath, ok, err := findWorkspaceToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadWorkspaceConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &workspaceManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadWorkspaceConfig(path string) (workspaceConfig, error) {
	var cfg workspaceConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return workspaceConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("workspace") {
		return workspaceConfig{}, fmt.Errorf("%s: missing [workspace]", path)
	}
	if !meta.IsDefined("workspace", "projects_dir") || strings.TrimSpace(cfg.Workspace.ProjectsDir) == "" {
		return workspaceConfig{}, fmt.Errorf("%s: missing [workspace].projects_dir", path)
	}
	if cfg.Defaults.Cores < 1 {
		cfg.Defaults.Cores = 1
	}
	if cfg.Defaults.Parallel < 1 {
		cfg.Defaults.Parallel = 1
	}
	return cfg, nil
}

// projectsDir resolves the projects directory against the workspace root.
func (m *workspaceManifest) projectsDir() string {
	dir := m.Config.Workspace.ProjectsDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}
