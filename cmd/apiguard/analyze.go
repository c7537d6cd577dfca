package main

import (
	"time"

	"github.com/spf13/cobra"

	"apiguard/internal/analysis"
	apierrors "apiguard/internal/errors"
)

var (
	analyzeDiff        string
	analyzeSave        bool
	analyzeFailOn      string
	analyzeConcurrency int
	analyzeConsumers   string
	analyzeNoStore     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]...",
	Short: "Detect breaking API changes in a diff or in files",
	Long: `Analyze changed files for API contract changes.

With --diff, every source file the unified diff touches is analyzed; its previous version
comes from a stored snapshot, or is reconstructed from the diff. When the diff does not apply
to the file on disk, breaking changes are inferred from the diff text alone.

Files given as arguments are compared against their stored snapshots.

Changed endpoints are looked up in consumer code when consumers.enabled is set (or with
--consumers), and every change is recorded in the snapshot database under a run id.

Exits with status 1 when a breaking change is found (or, with --fail-on, when the overall
risk level reaches the threshold).

Examples:
  git diff main...HEAD | apiguard analyze --diff -
  apiguard analyze --diff changes.patch --save
  apiguard analyze --diff - --consumers ../web-client --fail-on high
  apiguard analyze src/routes/orders.js --format=json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDiff, "diff", "", "Unified diff to analyze (file path, or - for stdin)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Record each file's contracts as its new snapshot")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "", "Fail when overall risk reaches this level (low, medium, high, critical, never); default fails on any breaking change")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "Files analyzed in parallel (default analysis.concurrency)")
	analyzeCmd.Flags().StringVar(&analyzeConsumers, "consumers", "", "Scan this directory for consumers of changed endpoints")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "Do not read or write the snapshot database")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := checkFailOn(analyzeFailOn); err != nil {
		return err
	}
	if analyzeDiff == "" && len(args) == 0 {
		return apierrors.New(apierrors.ConfigInvalid, "nothing to analyze: pass --diff or one or more files")
	}

	start := time.Now()
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.cfg
	inputs, err := collectInputs(e, cmd, args)
	if err != nil {
		return err
	}

	rules, err := e.suppressions()
	if err != nil {
		return err
	}

	opts := analysis.Options{
		Concurrency:   cfg.Analysis.Concurrency,
		MaxFileBytes:  cfg.Analysis.MaxFileBytes,
		Suppressions:  rules,
		SaveSnapshots: analyzeSave,
		Logger:        e.logger,
	}
	if analyzeConcurrency > 0 {
		opts.Concurrency = analyzeConcurrency
	}

	if cfg.Storage.Enabled && !analyzeNoStore {
		store, err := e.openStore()
		if err != nil {
			// analysis still runs; it just has no snapshots and records nothing
			e.logger.Warn("Snapshot storage unavailable", "error", err)
		} else {
			opts.Snapshots = store
			opts.Changes = store
		}
	}

	if analyzeConsumers != "" {
		cfg.Consumers.Enabled = true
		cfg.Consumers.Root = analyzeConsumers
	}
	if cfg.Consumers.Enabled {
		opts.Consumers = e.consumerScanner()
	}

	report, err := analysis.New(opts).Analyze(cmd.Context(), analysis.Request{Files: inputs})
	if err != nil {
		return apierrors.Wrap(apierrors.InternalError, "analysis interrupted", err)
	}

	if err := e.print(report); err != nil {
		return err
	}

	e.logger.Debug("Analysis finished",
		"files", len(report.Files),
		"breaking", report.Summary.BreakingChanges,
		"duration", time.Since(start).Milliseconds(),
	)
	return gate(analyzeFailOn, report.HasBreaking, report.Risk)
}

// collectInputs gathers the files named by --diff and by arguments. A file named both ways is
// analyzed once, with its diff.
func collectInputs(e *env, cmd *cobra.Command, args []string) ([]analysis.FileInput, error) {
	var inputs []analysis.FileInput
	seen := make(map[string]bool)

	if analyzeDiff != "" {
		diffText, err := readDiff(analyzeDiff, cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		filter := analysis.Filter{Include: e.cfg.Analysis.Include, Exclude: e.cfg.Analysis.Exclude}
		fromDiff, err := analysis.InputsFromDiff(e.root, diffText, filter, e.cfg.Analysis.MaxFileBytes)
		if err != nil {
			return nil, err
		}
		for _, in := range fromDiff {
			seen[in.Path] = true
		}
		inputs = append(inputs, fromDiff...)
	}

	for _, name := range args {
		in := analysis.ReadInput(name, e.cfg.Analysis.MaxFileBytes)
		in.Path = e.relPath(name)
		if seen[in.Path] {
			continue
		}
		seen[in.Path] = true
		inputs = append(inputs, in)
	}

	e.logger.Info("Collected inputs", "files", len(inputs))
	return inputs, nil
}
