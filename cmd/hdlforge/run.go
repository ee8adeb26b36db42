package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hdlforge/internal/pipeline"
	"hdlforge/internal/runner"
	"hdlforge/internal/steptrack"
)

// addOperationFlags registers the flags every operation command shares.
func addOperationFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "project configuration file (bypasses workspace discovery)")
	cmd.Flags().String("compile-order", "", "compile order manifest (default: compile_order.json next to the configuration)")
	cmd.Flags().Int("cores", 0, "backend job count (default from hdlforge.toml)")
	cmd.Flags().Int("parallel", 0, "projects to run concurrently (default from hdlforge.toml)")
	cmd.Flags().String("vivado-dir", "", "backend installation root (default from hdlforge.toml)")
}

// runOperation resolves flags against the workspace manifest and drives
// the runner for one operation.
func runOperation(op pipeline.Operation, cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	compileOrder, _ := cmd.Flags().GetString("compile-order")
	cores, _ := cmd.Flags().GetInt("cores")
	parallel, _ := cmd.Flags().GetInt("parallel")
	vivadoDir, _ := cmd.Flags().GetString("vivado-dir")

	opts := runner.Options{
		Operation:        op,
		ConfigPath:       configPath,
		CompileOrderPath: compileOrder,
		VivadoDir:        vivadoDir,
		Cores:            cores,
		Parallel:         parallel,
		Out:              os.Stdout,
	}

	if configPath == "" {
		manifest, found, err := loadWorkspaceManifest(".")
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s", noWorkspaceTomlMessage)
		}
		if len(args) == 0 {
			return fmt.Errorf("no projects named; usage: hdlforge %s <project>...", op)
		}
		opts.ProjectsDir = manifest.projectsDir()
		opts.Projects = args
		if opts.Cores == 0 {
			opts.Cores = manifest.Config.Defaults.Cores
		}
		if opts.Parallel == 0 {
			opts.Parallel = manifest.Config.Defaults.Parallel
		}
		if opts.VivadoDir == "" {
			opts.VivadoDir = manifest.Config.Workspace.VivadoDir
		}
	} else if len(args) > 0 {
		return fmt.Errorf("--config and project arguments are mutually exclusive")
	}

	results, err := runner.Run(cmd.Context(), opts)
	printResults(results)
	return err
}

func printResults(results []runner.ProjectResult) {
	for _, r := range results {
		fmt.Printf("%s %s (log: %s)\n", statusLabel(r), r.Name, r.LogFile)
		if r.Err != nil {
			fmt.Printf("    %v\n", r.Err)
		}
	}
}

func statusLabel(r runner.ProjectResult) string {
	if r.Err != nil {
		return color.RedString("FAILED ")
	}
	switch r.Status {
	case steptrack.StatusError:
		return color.RedString("ERROR  ")
	case steptrack.StatusWarning:
		return color.YellowString("WARNING")
	default:
		return color.GreenString("OK     ")
	}
}
