package main

import (
	"github.com/spf13/cobra"

	"hdlforge/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [project]...",
	Short: "Build projects through to bitstream",
	Long: `Build resolves each project's configuration, generates the backend
scripts and, when an installation is available, runs synthesis and
implementation to completion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(pipeline.OpBuild, cmd, args)
	},
}

func init() {
	addOperationFlags(buildCmd)
}
