package main

import (
	"github.com/spf13/cobra"

	"hdlforge/internal/pipeline"
)

var openCmd = &cobra.Command{
	Use:   "open [flags] [project]...",
	Short: "Prepare projects for interactive work",
	Long: `Open generates project creation scripts without restructuring IP core
sources, so the backend project references the originals in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(pipeline.OpOpen, cmd, args)
	},
}

func init() {
	addOperationFlags(openCmd)
}
