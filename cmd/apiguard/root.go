package main

import (
	"apiguard/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the repository root every relative path is resolved against
	rootFlag    string
	formatFlag  string
	verboseFlag int
	quietFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "apiguard",
	Short: "apiguard - API contract change detection",
	Long: `apiguard extracts HTTP endpoint contracts from route declarations, compares them across
versions and classifies every endpoint as ADDED, REMOVED, MODIFIED or BREAKING. When no earlier
version of a file is available it infers breaking changes from the unified diff alone, and it
scores the risk of shipping the result.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("apiguard version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "Repository root (holds .apiguard/)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (human, json, yaml)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}
