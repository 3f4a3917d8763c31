package commands

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/census"
	"github.com/censusops/acsgrid/internal/store"
)

// DeltaOptions holds flags for the delta command.
type DeltaOptions struct {
	YearA     int
	YearB     int
	State     string
	County    string
	QueryOnly bool
}

// NewDeltaCommand creates the delta command.
func NewDeltaCommand() *cobra.Command {
	opts := &DeltaOptions{}

	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Compute year-over-year deltas for a geography",
		Long: `Ensure both vintages are cached and persisted, then build the self-join
query computing year_b - year_a for every profile variable, and either
print the SQL or execute it and print the result row.`,
		Example: `  # California, 2018 vs 2023
  acsgrid delta --state 06 --year-a 2018 --year-b 2023

  # SQL only
  acsgrid delta --state 06 --year-a 2018 --year-b 2023 --query-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.YearA == opts.YearB {
				return fmt.Errorf("--year-a and --year-b must be different")
			}

			app, cleanup, err := NewApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			geo := census.StateGeo(opts.State)
			if opts.County != "" {
				geo = census.CountyGeo(opts.State, opts.County)
			}
			ctx := cmd.Context()

			allCols := map[string]bool{}
			for _, year := range []int{opts.YearA, opts.YearB} {
				row, _, err := app.Service.FetchOrCache(ctx, strconv.Itoa(year), geo, app.Cfg.Groups)
				if err != nil {
					return err
				}
				if _, err := app.Store.WriteRowAndQuery(ctx, row, year, geo); err != nil {
					return err
				}
				for k := range row {
					allCols[k] = true
				}
			}

			cols := make([]string, 0, len(allCols))
			for c := range allCols {
				cols = append(cols, c)
			}
			sort.Strings(cols)

			sqlText, err := store.BuildDeltaQuery(opts.YearA, opts.YearB, geo, cols)
			if err != nil {
				return err
			}

			if opts.QueryOnly {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), sqlText)
				return nil
			}

			result, err := app.Store.QueryRowMap(ctx, geo, sqlText)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no rows found for delta")
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&opts.YearA, "year-a", 0, "Baseline vintage (required)")
	cmd.Flags().IntVar(&opts.YearB, "year-b", 0, "Comparison vintage (required)")
	cmd.Flags().StringVar(&opts.State, "state", "", "State FIPS code (required)")
	cmd.Flags().StringVar(&opts.County, "county", "", "County FIPS code (optional)")
	cmd.Flags().BoolVar(&opts.QueryOnly, "query-only", false, "Print the delta SQL instead of executing it")
	_ = cmd.MarkFlagRequired("year-a")
	_ = cmd.MarkFlagRequired("year-b")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
