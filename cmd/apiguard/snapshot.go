package main

import (
	"github.com/spf13/cobra"

	"apiguard/internal/analysis"
	"apiguard/internal/contract"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/output"
	"apiguard/internal/storage"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file>...",
	Short: "Record the current contracts of files as their baseline",
	Long: `Extract the contracts of each file and store them as the file's latest snapshot.

Later runs of 'apiguard analyze' compare against the snapshot instead of reconstructing the
previous version from a diff. A file whose content is unchanged since its last snapshot is
not recorded again.

Examples:
  apiguard snapshot src/routes/*.js
  apiguard snapshot api/openapi.yaml --format=json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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
	listings := make([]output.ContractListing, 0, len(args))
	for _, name := range args {
		in := analysis.ReadInput(name, e.cfg.Analysis.MaxFileBytes)
		if in.Err != nil {
			return in.Err
		}
		path := e.relPath(name)
		style := contract.Detect(in.After)
		contracts := contract.ExtractStyle(style, path, in.After)

		if err := store.SaveSnapshot(ctx, path, storage.ContentHash([]byte(in.After)), contracts); err != nil {
			return apierrors.Wrap(apierrors.StorageUnavailable, "save snapshot of "+path, err)
		}
		e.logger.Info("Snapshot recorded", "file", path, "contracts", len(contracts))
		listings = append(listings, output.ContractListing{File: path, Style: style, Contracts: contracts})
	}
	return e.print(listings)
}
