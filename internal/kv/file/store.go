// Package file implements a key-value Store that keeps one JSON file per key
// in a directory. Writes use the temp-file, fsync, rename pattern so a reader
// never observes a partially written value.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*Store)(nil)

const fileExt = ".json"

// Store maps each key to <root>/<escaped key>.json.
type Store struct {
	root string
}

// New returns a file store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the directory holding the value files.
func (s *Store) Root() string { return s.root }

// pathFor escapes key so separators and colons in backup timestamps never
// leave the root directory.
func (s *Store) pathFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", types.ErrInvalidKey
	}
	return filepath.Join(s.root, url.QueryEscape(key)+fileExt), nil
}

// Get reads the file for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.ErrKeyNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put atomically replaces the file for key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	return writeAtomic(path, value)
}

// Delete removes the file for key.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// List scans the root directory and returns the keys matching prefix.
func (s *Store) List(_ context.Context, prefix string) ([]types.KeyInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading store dir: %w", err)
	}
	var out []types.KeyInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			out = append(out, types.KeyInfo{Name: key})
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// writeAtomic writes data to a temp file in the target directory, syncs it,
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kv-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing value: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
