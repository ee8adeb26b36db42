// Package main implements the hdlforge CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "hdlforge",
	Short: "FPGA project compiler and build driver",
	Long: `hdlforge resolves layered project configurations, classifies compile
orders, restructures IP core dependencies and generates the Tcl scripts
that drive the synthesis backend.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = versionString

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	cobra.OnInitialize(func() {
		applyColorMode()
		applyLogLevel()
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func applyColorMode() {
	mode, _ := rootCmd.PersistentFlags().GetString("color")
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

func applyLogLevel() {
	quiet, _ := rootCmd.PersistentFlags().GetBool("quiet")
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
