// Package postgres implements a key-value Store on a Postgres table using the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/linkshelf?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists each key as one row of the linkshelf_kv table.
type Store struct {
	db *sql.DB
}

// Open connects using dsn (falls back to defaultDSN), pings the server, and
// ensures the kv table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS linkshelf_kv (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure kv table: %w", err)
	}
	return nil
}

// Get selects the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM linkshelf_kv WHERE key = $1`, key).Scan(&value)
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
		`INSERT INTO linkshelf_kv(key, value) VALUES($1, $2)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM linkshelf_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List selects keys starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]types.KeyInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM linkshelf_kv WHERE left(key, length($1)) = $1 ORDER BY key COLLATE "C"`,
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
		out = append(out, types.KeyInfo{Name: key})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
