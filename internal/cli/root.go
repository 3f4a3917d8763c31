// Package cli provides the command-line interface for acsgrid.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/cli/commands"
	"github.com/censusops/acsgrid/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "acsgrid",
		Short: "acsgrid - ACS acquisition and cache service",
		Long: `acsgrid acquires wide ACS 5-year profile rows from the Census Bureau API,
caches variable and geography discovery durably, persists rows into
schema-evolving DuckDB tables, and computes year-over-year deltas.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
ACS cache service built with Go and DuckDB
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./acsgrid.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "Census API base URL")
	rootCmd.PersistentFlags().String("api-key", "", "Census API key")
	rootCmd.PersistentFlags().Int("vintage", 0, "Default ACS 5-year vintage")
	rootCmd.PersistentFlags().StringSlice("groups", nil, "Variable groups to load (e.g. DP02,DP03)")
	rootCmd.PersistentFlags().Int("batch-size", 0, "Variables per data request")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding DuckDB files and the KV cache")
	rootCmd.PersistentFlags().String("cache-path", "", "KV cache database path")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP listen port")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewFetchCommand())
	rootCmd.AddCommand(commands.NewCountiesCommand())
	rootCmd.AddCommand(commands.NewYearsCommand())
	rootCmd.AddCommand(commands.NewDeltaCommand())
	rootCmd.AddCommand(commands.NewExamplesCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
