package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/censusops/acsgrid/internal/census"
)

// Region identifies one persisted snapshot.
type Region struct {
	GeoLevel string `json:"geo_level"`
	Year     int    `json:"year"`
	State    string `json:"state"`
	County   string `json:"county,omitempty"`
	Name     string `json:"NAME"`
}

// SchemaChange is one entry of a table's column-addition log.
type SchemaChange struct {
	Table   string    `json:"table_name"`
	Column  string    `json:"column_name"`
	AddedAt time.Time `json:"added_at"`
}

// QueryRowMap executes sqlText against geo's database and returns the first
// result row as a column->value map. sql.ErrNoRows is returned when the
// query matches nothing.
func (s *Store) QueryRowMap(ctx context.Context, geo census.Geography, sqlText string) (map[string]any, error) {
	db, err := s.router.Open(ctx, geo)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan result row: %w", err)
	}

	out := make(map[string]any, len(cols))
	for i, c := range cols {
		if b, ok := values[i].([]byte); ok {
			out[c] = string(b)
		} else {
			out[c] = values[i]
		}
	}
	return out, nil
}

// Columns returns the column names of a wide table in catalog order: the
// shared state table, or the county table of stateFIPS when kind is county.
// A missing table yields an empty list, not an error.
func (s *Store) Columns(ctx context.Context, kind census.GeoKind, stateFIPS string) ([]string, error) {
	path := s.router.StatePath()
	if kind == census.GeoCounty {
		path = s.router.CountyPath(stateFIPS)
	}
	db, err := s.router.openPath(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	table := TableFor(kind)
	exists, err := tableExists(ctx, db, table)
	if err != nil || !exists {
		return []string{}, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// SchemaLog returns geo's column-addition log in insertion order. A missing
// log table yields an empty list.
func (s *Store) SchemaLog(ctx context.Context, geo census.Geography) ([]SchemaChange, error) {
	db, err := s.router.Open(ctx, geo)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	exists, err := tableExists(ctx, db, "schema_log")
	if err != nil || !exists {
		return []SchemaChange{}, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT table_name, column_name, added_at FROM schema_log ORDER BY added_at, column_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var changes []SchemaChange
	for rows.Next() {
		var c SchemaChange
		if err := rows.Scan(&c.Table, &c.Column, &c.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema log entry: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Regions lists every persisted snapshot across the state database and all
// per-state county databases, newest vintages first.
func (s *Store) Regions(ctx context.Context) ([]Region, error) {
	var regions []Region

	statePath := s.router.StatePath()
	countyPaths, err := s.router.CountyPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate county databases: %w", err)
	}

	type source struct {
		path  string
		table string
	}
	sources := []source{{statePath, StateTable}}
	for _, p := range countyPaths {
		sources = append(sources, source{p, CountyTable})
	}

	for _, src := range sources {
		rs, err := s.regionsFrom(ctx, src.path, src.table)
		if err != nil {
			return nil, err
		}
		regions = append(regions, rs...)
	}

	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.GeoLevel != b.GeoLevel {
			return a.GeoLevel < b.GeoLevel
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.County < b.County
	})
	return regions, nil
}

func (s *Store) regionsFrom(ctx context.Context, path, table string) ([]Region, error) {
	db, err := s.router.openPath(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	exists, err := tableExists(ctx, db, table)
	if err != nil || !exists {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT geo_level, year, state, coalesce(county, ''), NAME FROM %s`, table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions from %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var regions []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.GeoLevel, &r.Year, &r.State, &r.County, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM information_schema.tables WHERE table_name = ?`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}
