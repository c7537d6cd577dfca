package main

import (
	"github.com/spf13/cobra"

	"apiguard/internal/analysis"
	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/output"
	"apiguard/internal/risk"
)

var compareFailOn string

var compareCmd = &cobra.Command{
	Use:   "compare <before> <after>",
	Short: "Classify endpoint changes between two versions of a file",
	Long: `Compare the contracts of two versions of a source file.

Every endpoint is classified as ADDED, REMOVED, MODIFIED or BREAKING. Suppressions from
.apiguard/suppressions.toml are applied. Exits with status 1 when a breaking change remains
(or, with --fail-on, when the risk level reaches the threshold).

Examples:
  apiguard compare old/routes.js src/routes.js
  git show HEAD~1:api/openapi.yaml > /tmp/before.yaml && apiguard compare /tmp/before.yaml api/openapi.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareFailOn, "fail-on", "", "Fail when risk reaches this level (low, medium, high, critical, never); default fails on any breaking change")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if err := checkFailOn(compareFailOn); err != nil {
		return err
	}
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	maxBytes := e.cfg.Analysis.MaxFileBytes
	before := analysis.ReadInput(args[0], maxBytes)
	if before.Err != nil {
		return before.Err
	}
	after := analysis.ReadInput(args[1], maxBytes)
	if after.Err != nil {
		return after.Err
	}

	rules, err := e.suppressions()
	if err != nil {
		return err
	}

	path := e.relPath(args[1])
	changes := compare.Compare(
		contract.Extract(path, before.After),
		contract.Extract(path, after.After),
	)
	changes, suppressed := rules.Apply(changes)
	for _, s := range suppressed {
		e.logger.Info("Change suppressed", "endpoint", s.Change.Key().String(), "reason", s.Reason)
	}

	cs := &output.ChangeSet{
		Before:  e.relPath(args[0]),
		After:   path,
		Changes: changes,
		Summary: compare.Summarize(changes),
		Risk:    risk.Score(changes, 0, 0),
	}
	if err := e.print(cs); err != nil {
		return err
	}
	return gate(compareFailOn, compare.HasBreaking(changes), cs.Risk)
}
