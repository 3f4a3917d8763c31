package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/census"
)

// NewYearsCommand creates the years command.
func NewYearsCommand() *cobra.Command {
	var state, county string
	var start, end int

	cmd := &cobra.Command{
		Use:   "years",
		Short: "Probe which vintages are available for a geography",
		Long: `Probe each candidate year with a minimal query and print the vintages the
API answers for. Complete windows are cached; a probe that fails in transit
aborts the scan instead of silently marking the year unavailable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := NewApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if start == 0 {
				start = app.Cfg.StartYear
			}
			if end == 0 {
				end = app.Cfg.Vintage
			}
			geo := census.StateGeo(state)
			if county != "" {
				geo = census.CountyGeo(state, county)
			}

			years, err := app.Service.AvailableYears(cmd.Context(), geo, start, end)
			if err != nil {
				return err
			}
			for _, y := range years {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), y)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "State FIPS code (required)")
	cmd.Flags().StringVar(&county, "county", "", "County FIPS code (optional)")
	cmd.Flags().IntVar(&start, "start", 0, "First year to probe (defaults to configured start_year)")
	cmd.Flags().IntVar(&end, "end", 0, "Last year to probe (defaults to configured vintage)")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
