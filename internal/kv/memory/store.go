// Package memory implements an in-process key-value Store. Intended for tests
// and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Store keeps values in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store { return &Store{objs: make(map[string][]byte)} }

// Get returns a copy of the value under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return clone(v), nil
}

// Put stores a copy of value under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[key] = clone(value)
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objs, key)
	return nil
}

// List returns all keys matching prefix, sorted.
func (s *Store) List(_ context.Context, prefix string) ([]types.KeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.KeyInfo, 0, len(s.objs))
	for k := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, types.KeyInfo{Name: k})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
