package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCountiesCommand creates the counties command.
func NewCountiesCommand() *cobra.Command {
	var state string
	var year int

	cmd := &cobra.Command{
		Use:   "counties",
		Short: "List the counties of a state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := NewApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if year == 0 {
				year = app.Cfg.Vintage
			}
			counties, err := app.Service.CountiesForState(cmd.Context(), fmt.Sprintf("%d", year), state)
			if err != nil {
				return err
			}

			codes := make([]string, 0, len(counties))
			for c := range counties {
				codes = append(codes, c)
			}
			sort.Strings(codes)

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"county", "NAME"})
			for _, c := range codes {
				t.AppendRow(table.Row{c, counties[c]})
			}
			t.Render()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d counties)\n", len(codes))
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "State FIPS code (required)")
	cmd.Flags().IntVar(&year, "year", 0, "ACS 5-year vintage (defaults to configured vintage)")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
