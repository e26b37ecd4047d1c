package types

import (
	"context"
	"errors"
)

// KeyInfo describes one key returned by Store.List.
type KeyInfo struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store is the key-value adapter every driver implements. Values are opaque
// byte slices; linkshelf stores JSON documents in them.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or overwrites the value under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key that starts with prefix. The order of the
	// result is driver specific; callers sort when they need to.
	List(ctx context.Context, prefix string) ([]KeyInfo, error)

	// Close releases driver resources.
	Close() error
}

// Store errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
)

// Operation errors surfaced by the repository, backup manager, and gate.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("record not found")
	ErrInvalidBackup = errors.New("invalid backup data")
	ErrStoreFailure  = errors.New("store failure")
)
