package main

import (
	"github.com/spf13/cobra"

	"apiguard/internal/compare"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/output"
)

var changesCmd = &cobra.Command{
	Use:   "changes [run-id]",
	Short: "Show the changes recorded by an analysis run",
	Long: `List the changes 'apiguard analyze' recorded for a run.

Without a run id (or with "latest") the most recent run is shown.

Examples:
  apiguard changes
  apiguard changes 3f1c2b9e-5d7a-4c1e-9a43-0b6f2e8d1c55 --format=json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChanges,
}

func init() {
	rootCmd.AddCommand(changesCmd)
}

func runChanges(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	store, err := e.openStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	runID := "latest"
	if len(args) == 1 {
		runID = args[0]
	}
	if runID == "latest" {
		id, ok, err := store.LatestRunID(ctx)
		if err != nil {
			return apierrors.Wrap(apierrors.StorageUnavailable, "find latest run", err)
		}
		if !ok {
			return apierrors.New(apierrors.StorageUnavailable, "no analysis runs recorded yet")
		}
		runID = id
	}

	records, err := store.ListChanges(ctx, runID)
	if err != nil {
		return apierrors.Wrap(apierrors.StorageUnavailable, "list changes", err)
	}

	all := make([]compare.ContractChange, len(records))
	for i, r := range records {
		all[i] = r.Change
	}
	return e.print(&output.RunChanges{
		RunID:   runID,
		Records: records,
		Summary: compare.Summarize(all),
	})
}
