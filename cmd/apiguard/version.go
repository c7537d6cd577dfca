package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"apiguard/internal/output"
	"apiguard/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		if format == output.FormatHuman {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		}
		return output.Render(cmd.OutOrStdout(), version.Get(), output.Options{Format: format})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
