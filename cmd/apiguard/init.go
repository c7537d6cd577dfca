package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"apiguard/internal/config"
	apierrors "apiguard/internal/errors"
)

var initForce bool

const suppressionsTemplate = `# Changes listed here are reported as suppressed instead of failing the run.
#
# [[suppress]]
# method = "DELETE"            # optional; "*" or empty matches every verb
# path = "/v1/legacy/**"       # exact path or doublestar glob
# type = "BREAKING"            # optional; ADDED, REMOVED, MODIFIED or BREAKING
# reason = "v1 retired, announced 2024-01"
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize apiguard configuration",
	Long:  "Creates a .apiguard/ directory with a default config.toml and a suppressions template in the repository root",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config.toml with defaults")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(rootFlag)
	if err != nil {
		return apierrors.Wrap(apierrors.InternalError, "resolve repository root", err)
	}
	out := cmd.OutOrStdout()
	configPath := config.Path(root)

	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// already initialized is success (CI-friendly)
		fmt.Fprintln(out, "apiguard already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'apiguard init --force' to reset it to defaults.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return apierrors.Wrap(apierrors.InternalError, "write "+configPath, err)
	}

	suppressionsPath := config.Resolve(root, cfg.Suppressions.Path)
	if _, statErr := os.Stat(suppressionsPath); os.IsNotExist(statErr) {
		if err := os.MkdirAll(filepath.Dir(suppressionsPath), 0755); err != nil {
			return apierrors.Wrap(apierrors.InternalError, "create "+filepath.Dir(suppressionsPath), err)
		}
		if err := os.WriteFile(suppressionsPath, []byte(suppressionsTemplate), 0644); err != nil {
			return apierrors.Wrap(apierrors.InternalError, "write "+suppressionsPath, err)
		}
	}

	fmt.Fprintln(out, "apiguard initialized successfully!")
	fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'apiguard snapshot <files>' to record baselines")
	fmt.Fprintln(out, "  2. Run 'git diff | apiguard analyze --diff -' in CI")
	return nil
}
