// Package server exposes the acquisition-and-cache core over HTTP. It owns
// input validation, status codes, and request-scoped memoization; all data
// work is delegated to the census service and the store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/censusops/acsgrid/internal/cache"
	"github.com/censusops/acsgrid/internal/census"
	"github.com/censusops/acsgrid/internal/store"
)

// Server is the HTTP facade over the core operations.
type Server struct {
	svc       *census.Service
	store     *store.Store
	memo      *cache.Memo
	vintage   int
	startYear int
	groups    []string
	port      int
	logger    *slog.Logger
}

// Options configures a Server.
type Options struct {
	Service   *census.Service
	Store     *store.Store
	Memo      *cache.Memo
	Vintage   int
	StartYear int
	Groups    []string
	Port      int
	Logger    *slog.Logger
}

// NewServer builds a Server. A nil Memo gets a default-sized one.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	memo := opts.Memo
	if memo == nil {
		memo = cache.NewMemo(512, time.Hour)
	}
	return &Server{
		svc:       opts.Service,
		store:     opts.Store,
		memo:      memo,
		vintage:   opts.Vintage,
		startYear: opts.StartYear,
		groups:    opts.Groups,
		port:      opts.Port,
		logger:    logger,
	}
}

// Router assembles the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/states", s.handleStates)
	r.Get("/counties/{state}", s.handleCounties)
	r.Get("/years/state/{state}", s.handleYearsState)
	r.Get("/years/county/{state}/{county}", s.handleYearsCounty)
	r.Get("/data/state/{state}", s.handleDataState)
	r.Get("/data/county/{state}/{county}", s.handleDataCounty)
	r.Get("/delta/state/{state}", s.handleDeltaState)
	r.Get("/delta/county/{state}/{county}", s.handleDeltaCounty)
	r.Get("/regions", s.handleRegions)
	r.Get("/columns", s.handleColumns)

	return r
}

// Serve starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// writeJSON renders v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// httpError renders an error body under a "detail" key.
func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
