// Package bolt implements a key-value Store on a single bbolt bucket.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*Store)(nil)

var bucketKV = []byte("kv")

// Store wraps a bbolt database holding every key in one bucket.
type Store struct {
	db *bbolt.DB
}

// Option configures a Store.
type Option func(*bbolt.Options)

// WithNoSync disables fsync per transaction. Use only in tests.
func WithNoSync() Option {
	return func(o *bbolt.Options) { o.NoSync = true }
}

// Open opens (or creates) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = "linkshelf.bolt"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	bo := &bbolt.Options{Timeout: 1 * time.Second}
	for _, opt := range opts {
		opt(bo)
	}
	db, err := bbolt.Open(path, 0o600, bo)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns a copy of the value under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketKV).Get([]byte(key))
		if val == nil {
			return types.ErrKeyNotFound
		}
		data = make([]byte, len(val))
		copy(data, val)
		return nil
	})
	return data, err
}

// Put stores value under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	})
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
}

// List walks the bucket cursor from prefix.
func (s *Store) List(_ context.Context, prefix string) ([]types.KeyInfo, error) {
	var out []types.KeyInfo
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketKV).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			out = append(out, types.KeyInfo{Name: string(k)})
		}
		return nil
	})
	return out, err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
