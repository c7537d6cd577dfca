package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"apiguard/internal/analysis"
	"apiguard/internal/contract"
	"apiguard/internal/output"
)

var extractStyle string

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "List the endpoint contracts declared in source files",
	Long: `Extract HTTP endpoint contracts from route declarations.

The declaration style (OpenAPI, Spring-style annotations, ASP.NET attributes, decorators,
Express/Gin-style verb calls, or literal "VERB /path" text) is detected per file unless
--style is given.

Examples:
  apiguard extract src/routes/orders.js
  apiguard extract api/openapi.yaml --format=json
  apiguard extract server.go --style=verbcall`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractStyle, "style", "", "Force a declaration style (openapi, annotation, bracket, decorator, verbcall, generic)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	var forced contract.Style
	if extractStyle != "" {
		forced = contract.Style(extractStyle)
		if _, ok := contract.StrategyFor(forced); !ok {
			return fmt.Errorf("unknown style %q", extractStyle)
		}
	}

	listings := make([]output.ContractListing, 0, len(args))
	for _, name := range args {
		in := analysis.ReadInput(name, e.cfg.Analysis.MaxFileBytes)
		if in.Err != nil {
			return in.Err
		}
		style := forced
		if style == "" {
			style = contract.Detect(in.After)
		}
		contracts := contract.ExtractStyle(style, e.relPath(name), in.After)
		e.logger.Debug("Extracted contracts", "file", name, "style", style, "count", len(contracts))
		listings = append(listings, output.ContractListing{
			File:      e.relPath(name),
			Style:     style,
			Contracts: contracts,
		})
	}
	return e.print(listings)
}
