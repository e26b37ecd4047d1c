// Package sqlite implements a key-value Store on a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// Store persists each key as one row of the kv table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "linkshelf.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Get selects the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrKeyNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

// Put upserts the value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List range-scans keys from prefix in BINARY collation order and stops at
// the first key that no longer carries the prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]types.KeyInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE key >= ? ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.KeyInfo
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !strings.HasPrefix(key, prefix) {
			break
		}
		out = append(out, types.KeyInfo{Name: key})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
