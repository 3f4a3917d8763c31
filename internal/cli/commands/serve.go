package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/cache"
	"github.com/censusops/acsgrid/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve the ACS cache API over HTTP.

Endpoints cover metadata (/states, /counties, /columns, /regions), year
discovery (/years/...), point-in-time data (/data/...), and year-over-year
deltas (/delta/...). Data and delta endpoints accept query_only=true to
return the SQL without executing it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := NewApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.NewServer(server.Options{
				Service:   app.Service,
				Store:     app.Store,
				Memo:      cache.NewMemo(app.Cfg.MemoSize, app.Cfg.MemoTTL),
				Vintage:   app.Cfg.Vintage,
				StartYear: app.Cfg.StartYear,
				Groups:    app.Cfg.Groups,
				Port:      app.Cfg.Port,
				Logger:    app.Logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
}
