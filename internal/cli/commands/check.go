package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/census"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Year   int
	State  string
	County string
	Log    bool
}

// NewCheckCommand creates the check command, a coverage harness that
// compares the discovered variable set for the configured groups against
// the columns actually returned for one geography.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify variable coverage for a geography",
		Long: `Discover every variable in the configured groups, fetch the wide row for
one geography, and report variables the API did not return alongside any
extra columns the row carries. With --log, also print the schema change
log recorded for the geography's table.`,
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
			vintage := strconv.Itoa(year)

			want, err := app.Service.DiscoverAllVariables(ctx, vintage, app.Cfg.Groups)
			if err != nil {
				return err
			}

			row, hit, err := app.Service.FetchOrCache(ctx, vintage, geo, app.Cfg.Groups)
			if err != nil {
				return err
			}
			if _, err := app.Store.WriteRowAndQuery(ctx, row, year, geo); err != nil {
				return err
			}

			var missing []string
			for _, v := range want {
				if _, ok := row[v]; !ok {
					missing = append(missing, v)
				}
			}
			wantSet := map[string]bool{"NAME": true}
			for _, v := range want {
				wantSet[v] = true
			}
			var extra []string
			for k := range row {
				if !wantSet[k] {
					extra = append(extra, k)
				}
			}
			sort.Strings(extra)

			out := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"check", "result"})
			t.AppendRow(table.Row{"geography", geo.String()})
			t.AppendRow(table.Row{"vintage", year})
			t.AppendRow(table.Row{"expected variables", len(want)})
			t.AppendRow(table.Row{"row columns", len(row)})
			t.AppendRow(table.Row{"cache hit", hit})
			t.AppendRow(table.Row{"missing", len(missing)})
			t.AppendRow(table.Row{"extra", len(extra)})
			t.Render()

			for _, v := range missing {
				_, _ = fmt.Fprintf(out, "missing: %s\n", v)
			}
			for _, v := range extra {
				_, _ = fmt.Fprintf(out, "extra: %s\n", v)
			}

			if opts.Log {
				changes, err := app.Store.SchemaLog(ctx, geo)
				if err != nil {
					return err
				}
				for _, c := range changes {
					_, _ = fmt.Fprintf(out, "schema: %s added %s at %s\n",
						c.Table, c.Column, c.AddedAt.Format("2006-01-02 15:04:05"))
				}
			}

			if len(missing) > 0 {
				return fmt.Errorf("%d expected variables missing from the row", len(missing))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "ACS 5-year vintage (defaults to configured vintage)")
	cmd.Flags().StringVar(&opts.State, "state", "", "State FIPS code (required)")
	cmd.Flags().StringVar(&opts.County, "county", "", "County FIPS code (optional)")
	cmd.Flags().BoolVar(&opts.Log, "log", false, "Also print the schema change log")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
