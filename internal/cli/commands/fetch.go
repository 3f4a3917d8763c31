package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/census"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	Year      int
	State     string
	County    string
	QueryOnly bool
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch (or read from cache) a wide row and persist it",
		Long: `Fetch the wide ACS row for one geography and vintage, populate the KV
cache on a miss, persist the row into the wide table, and print either the
row or the exact SELECT that retrieves it.`,
		Example: `  # California, default vintage and groups
  acsgrid fetch --state 06

  # Orange County at a specific vintage, SQL only
  acsgrid fetch --state 06 --county 059 --year 2018 --query-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := NewApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			year := opts.Year
			if year == 0 {
				year = app.Cfg.Vintage
			}
			geo := census.StateGeo(opts.State)
			if opts.County != "" {
				geo = census.CountyGeo(opts.State, opts.County)
			}

			ctx := cmd.Context()
			row, hit, err := app.Service.FetchOrCache(ctx, fmt.Sprintf("%d", year), geo, app.Cfg.Groups)
			if err != nil {
				return err
			}
			app.Logger.Info("row resolved", "geo", geo.String(), "year", year, "cache_hit", hit, "columns", len(row))

			sqlText, err := app.Store.WriteRowAndQuery(ctx, row, year, geo)
			if err != nil {
				return err
			}

			if opts.QueryOnly {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), sqlText)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(row)
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "ACS 5-year vintage (defaults to configured vintage)")
	cmd.Flags().StringVar(&opts.State, "state", "", "State FIPS code (required)")
	cmd.Flags().StringVar(&opts.County, "county", "", "County FIPS code (optional)")
	cmd.Flags().BoolVar(&opts.QueryOnly, "query-only", false, "Print the retrieval SQL instead of the row")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
