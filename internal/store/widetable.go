package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/censusops/acsgrid/internal/census"
)

// coreColumns are present in every wide table from creation. All other
// columns are added dynamically, always typed TEXT, named exactly as the
// variable code. The column set only grows, never shrinks.
var coreColumns = []string{"geo_level", "year", "state", "county", "NAME"}

func isCoreColumn(name string) bool {
	for _, c := range coreColumns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Store persists wide rows, evolving each table's schema to match the
// row's key set, and hands back the exact point-query for the written row.
type Store struct {
	router *Router
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger attaches a structured logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// New builds a Store over the given router.
func New(router *Router, opts ...StoreOption) *Store {
	s := &Store{router: router, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteRowAndQuery persists row for (vintage, geo) and returns the SELECT
// text that retrieves exactly that row. Identifier fields in the row are
// overwritten from the arguments before writing; the write replaces any
// previous row for the same identifier tuple within one transaction, so
// concurrent identical writes cannot stack duplicates.
func (s *Store) WriteRowAndQuery(ctx context.Context, row census.WideRow, vintage int, geo census.Geography) (string, error) {
	if err := geo.Validate(); err != nil {
		return "", err
	}

	normalized := row.Clone()
	normalized["geo_level"] = string(geo.Kind)
	normalized["year"] = strconv.Itoa(vintage)
	normalized["state"] = geo.State
	if geo.Kind == census.GeoCounty {
		normalized["county"] = geo.County
	} else {
		delete(normalized, "county")
	}

	table := TableFor(geo.Kind)

	db, err := s.router.Open(ctx, geo)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	if err := s.ensureTable(ctx, db, table, normalized.Keys()); err != nil {
		return "", err
	}
	if err := s.insertRow(ctx, db, table, normalized, vintage, geo); err != nil {
		return "", err
	}

	return fmt.Sprintf("SELECT * FROM %s WHERE %s;", table, identityWhere("", vintage, geo)), nil
}

// ensureTable creates the table with its core columns when missing, then
// grows the column set to cover every key in columns. Additions are recorded
// in schema_log. A concurrent add of the same column by a second writer is
// benign: existence is re-checked from the catalog instead of matching
// driver error strings.
func (s *Store) ensureTable(ctx context.Context, db *sql.DB, table string, columns []string) error {
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		geo_level TEXT,
		year      INTEGER,
		state     TEXT,
		county    TEXT,
		NAME      TEXT
	)`, table)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", table, err)
	}

	logDDL := `CREATE TABLE IF NOT EXISTS schema_log (
		table_name  TEXT,
		column_name TEXT,
		added_at    TIMESTAMP
	)`
	if _, err := db.ExecContext(ctx, logDDL); err != nil {
		return fmt.Errorf("failed to ensure schema log: %w", err)
	}

	existing, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}

	for _, col := range columns {
		if isCoreColumn(col) || existing[strings.ToLower(col)] {
			continue
		}

		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TEXT`, table, quoteIdent(col))
		if _, err := db.ExecContext(ctx, alter); err != nil {
			// A second writer may have added the column between our catalog
			// read and the ALTER. Trust the catalog, not the error text.
			refreshed, checkErr := tableColumns(ctx, db, table)
			if checkErr == nil && refreshed[strings.ToLower(col)] {
				s.logger.Debug("column added concurrently", "table", table, "column", col)
				continue
			}
			return fmt.Errorf("failed to add column %s to %s: %w", col, table, err)
		}

		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_log (table_name, column_name, added_at) VALUES (?, ?, ?)`,
			table, col, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("failed to record column addition: %w", err)
		}
		s.logger.Debug("column added", "table", table, "column", col)
	}

	return nil
}

// insertRow replaces the identifier tuple's row and inserts the new record
// spanning all of its columns, in a single transaction.
func (s *Store) insertRow(ctx context.Context, db *sql.DB, table string, row census.WideRow, vintage int, geo census.Geography) error {
	cols := row.Keys()

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	values := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
		if strings.EqualFold(col, "year") {
			values[i] = vintage
		} else {
			values[i] = row[col]
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := fmt.Sprintf(`DELETE FROM %s WHERE %s`, table, identityWhere("", vintage, geo))
	if _, err := tx.ExecContext(ctx, del); err != nil {
		return fmt.Errorf("failed to clear existing row: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, insert, values...); err != nil {
		return fmt.Errorf("failed to insert row into %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit row write: %w", err)
	}
	return nil
}

// identityWhere pins geo_level, year, and whichever of state/county are
// present, with the literal identifier values used at write time. The alias
// prefix ("a." etc.) may be empty.
func identityWhere(alias string, vintage int, geo census.Geography) string {
	parts := []string{
		fmt.Sprintf("%sgeo_level = '%s'", alias, geo.Kind),
		fmt.Sprintf("%syear = %d", alias, vintage),
		fmt.Sprintf("%sstate = '%s'", alias, geo.State),
	}
	if geo.Kind == census.GeoCounty {
		parts = append(parts, fmt.Sprintf("%scounty = '%s'", alias, geo.County))
	}
	return strings.Join(parts, " AND ")
}

// tableColumns returns the lowercased column set of table from the catalog.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
