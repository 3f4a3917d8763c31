// Package store persists wide ACS rows into DuckDB, growing each table's
// column set as new variables appear, and builds the exact SQL that
// retrieves or compares persisted snapshots.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/censusops/acsgrid/internal/census"

	// duckdb driver for the wide fact tables.
	_ "github.com/marcboeker/go-duckdb"
)

const (
	// StateTable holds all state-level rows in a single shared table.
	StateTable = "acs5_state_profile"
	// CountyTable holds county rows, one physical database per state for
	// storage locality and parallel-write isolation.
	CountyTable = "acs5_county_profile"

	defaultThreads     = 4
	defaultMemoryLimit = "4GB"
)

// Router maps geographies to DuckDB files and opens short-lived
// connections with the process-wide engine knobs applied.
type Router struct {
	dataDir     string
	threads     int
	memoryLimit string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithThreads caps the engine's thread count per connection.
func WithThreads(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.threads = n
		}
	}
}

// WithMemoryLimit caps the engine's memory per connection, e.g. "4GB".
func WithMemoryLimit(limit string) RouterOption {
	return func(r *Router) {
		if limit != "" {
			r.memoryLimit = limit
		}
	}
}

// NewRouter builds a Router rooted at dataDir, creating it if needed.
func NewRouter(dataDir string, opts ...RouterOption) (*Router, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	r := &Router{
		dataDir:     dataDir,
		threads:     defaultThreads,
		memoryLimit: defaultMemoryLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// StatePath is the single database file for all state-level rows.
func (r *Router) StatePath() string {
	return filepath.Join(r.dataDir, "acs_states.duckdb")
}

// CountyPath is the database file holding counties for one state,
// e.g. acs_counties_06.duckdb for California.
func (r *Router) CountyPath(stateFIPS string) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("acs_counties_%s.duckdb", stateFIPS))
}

// CountyPaths lists every per-state county database currently on disk.
func (r *Router) CountyPaths() ([]string, error) {
	return filepath.Glob(filepath.Join(r.dataDir, "acs_counties_*.duckdb"))
}

// TableFor returns the physical table name for a geography kind.
func TableFor(kind census.GeoKind) string {
	if kind == census.GeoCounty {
		return CountyTable
	}
	return StateTable
}

// Open opens a short-lived connection to the database for geo. Callers own
// the connection and must close it after the operation; there is no pool
// shared across operations.
func (r *Router) Open(ctx context.Context, geo census.Geography) (*sql.DB, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	path := r.StatePath()
	if geo.Kind == census.GeoCounty {
		path = r.CountyPath(geo.State)
	}
	return r.openPath(ctx, path)
}

func (r *Router) openPath(ctx context.Context, path string) (*sql.DB, error) {
	cfg := url.Values{}
	cfg.Set("threads", fmt.Sprintf("%d", r.threads))
	cfg.Set("memory_limit", r.memoryLimit)
	cfg.Set("preserve_insertion_order", "false")

	db, err := sql.Open("duckdb", path+"?"+cfg.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb at %s: %w", path, err)
	}
	return db, nil
}
