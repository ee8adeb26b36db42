package main

import (
	"github.com/spf13/cobra"

	"hdlforge/internal/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] [project]...",
	Short: "Build projects and collect distributable artefacts",
	Long: `Export runs the same stages as build and gathers the resulting
bitstream, reports and restructured sources under the operation's
artefacts directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(pipeline.OpExport, cmd, args)
	},
}

func init() {
	addOperationFlags(exportCmd)
}
