package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExamplesCommand creates the examples command, which prints a set of
// curl invocations against a running server.
func NewExamplesCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Print example curl requests for the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			base := fmt.Sprintf("http://127.0.0.1:%d", port)
			out := cmd.OutOrStdout()

			lines := []string{
				"# List known state FIPS codes",
				fmt.Sprintf("curl '%s/states'", base),
				"",
				"# Counties within California",
				fmt.Sprintf("curl '%s/counties/06'", base),
				"",
				"# Vintages with data for a state and for a county",
				fmt.Sprintf("curl '%s/years/state/06'", base),
				fmt.Sprintf("curl '%s/years/county/06/059'", base),
				"",
				"# Fetch and persist a wide row, then read it back",
				fmt.Sprintf("curl '%s/data/state/06?year=2023'", base),
				fmt.Sprintf("curl '%s/data/county/06/059?year=2023'", base),
				"",
				"# Same, but only print the retrieval SQL",
				fmt.Sprintf("curl '%s/data/state/06?year=2023&query_only=true'", base),
				"",
				"# Year-over-year deltas",
				fmt.Sprintf("curl '%s/delta/state/06?year_a=2018&year_b=2023'", base),
				fmt.Sprintf("curl '%s/delta/county/06/059?year_a=2018&year_b=2023&query_only=true'", base),
				"",
				"# What has been persisted so far",
				fmt.Sprintf("curl '%s/regions'", base),
				fmt.Sprintf("curl '%s/columns'", base),
				fmt.Sprintf("curl '%s/columns?state=06'", base),
			}
			for _, l := range lines {
				if _, err := fmt.Fprintln(out, l); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 32101, "Port the server listens on")

	return cmd
}
