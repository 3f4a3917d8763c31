// Package cache provides the durable key/value cache backing variable and
// geography discovery, plus a bounded in-memory memoizer for request-path
// lookups.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	// sqlite driver for the kv cache database.
	_ "modernc.org/sqlite"
)

// KVStore is a generic, durable key/value cache. At most one live value
// exists per key; writes replace rather than append.
type KVStore struct {
	db   *sql.DB
	path string
}

// NewKVStore creates an unopened KVStore.
func NewKVStore() *KVStore {
	return &KVStore{}
}

// Open opens the cache database. Use ":memory:" for an in-memory cache.
func (s *KVStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping cache database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the cache database.
func (s *KVStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key. The bool reports presence.
func (s *KVStore) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("cache database not opened")
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache key %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key: within a single transaction any existing row
// for the key is deleted, then the new value inserted. On failure the
// transaction rolls back fully and the cache is unchanged.
func (s *KVStore) Set(key, value string) error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM kv_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to replace cache key %q: %w", key, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO kv_cache (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert cache key %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache write: %w", err)
	}
	return nil
}

// UpdatedAt returns when key was last written. Mainly for diagnostics.
func (s *KVStore) UpdatedAt(key string) (time.Time, bool, error) {
	if s.db == nil {
		return time.Time{}, false, fmt.Errorf("cache database not opened")
	}

	var ts time.Time
	err := s.db.QueryRow(`SELECT updated_at FROM kv_cache WHERE key = ?`, key).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read cache timestamp for %q: %w", key, err)
	}
	return ts, true, nil
}
