// Package commands implements the acsgrid CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/censusops/acsgrid/internal/cache"
	"github.com/censusops/acsgrid/internal/census"
	"github.com/censusops/acsgrid/internal/config"
	"github.com/censusops/acsgrid/internal/store"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ConfigFrom retrieves the configuration stored by the root command.
func ConfigFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return nil
}

// LoggerFrom retrieves the logger, falling back to a discard logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// App holds the wired dependencies a command operates on.
type App struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	KV      *cache.KVStore
	Service *census.Service
	Store   *store.Store
}

// NewApp wires the KV cache, census service, and store from the command's
// configuration. The returned cleanup function must be called (typically
// via defer).
func NewApp(cmd *cobra.Command) (*App, func(), error) {
	cfg := ConfigFrom(cmd.Context())
	if cfg == nil {
		var err error
		cfg, err = config.Load("", nil)
		if err != nil {
			return nil, nil, err
		}
	}
	logger := LoggerFrom(cmd.Context())

	cachePath := cfg.CacheFile()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	kv := cache.NewKVStore()
	if err := kv.Open(cachePath); err != nil {
		return nil, nil, err
	}
	if err := kv.Migrate(); err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	client := census.NewClient(
		census.WithBaseURL(cfg.BaseURL),
		census.WithAPIKey(cfg.APIKey),
		census.WithTimeout(cfg.HTTPTimeout),
		census.WithLogger(logger),
	)
	svc := census.NewService(client, kv,
		census.WithBatchSize(cfg.BatchSize),
		census.WithServiceLogger(logger),
	)

	router, err := store.NewRouter(cfg.DataDir)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	st := store.New(router, store.WithStoreLogger(logger))

	cleanup := func() {
		_ = kv.Close()
	}
	return &App{Cfg: cfg, Logger: logger, KV: kv, Service: svc, Store: st}, cleanup, nil
}
