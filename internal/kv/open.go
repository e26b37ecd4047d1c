// Package kv selects and opens a key-value Store driver from configuration.
package kv

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/linkshelf/internal/kv/bolt"
	"github.com/mesh-intelligence/linkshelf/internal/kv/file"
	"github.com/mesh-intelligence/linkshelf/internal/kv/memory"
	"github.com/mesh-intelligence/linkshelf/internal/kv/postgres"
	"github.com/mesh-intelligence/linkshelf/internal/kv/s3"
	"github.com/mesh-intelligence/linkshelf/internal/kv/sqlite"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// Default file names under DataDir when Path is empty.
const (
	defaultFileDir    = "kv"
	defaultBoltFile   = "linkshelf.bolt"
	defaultSQLiteFile = "linkshelf.db"
)

// Open validates cfg and opens the selected driver.
func Open(ctx context.Context, cfg types.StoreConfig) (types.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		store types.Store
		err   error
	)
	switch cfg.Driver {
	case types.DriverMemory:
		store = memory.New()
	case types.DriverFile:
		store, err = asStore(file.New(pathOr(cfg, defaultFileDir)))
	case types.DriverBolt:
		store, err = asStore(bolt.Open(pathOr(cfg, defaultBoltFile)))
	case types.DriverSQLite:
		store, err = asStore(sqlite.Open(pathOr(cfg, defaultSQLiteFile)))
	case types.DriverPostgres:
		store, err = asStore(postgres.Open(ctx, cfg.DSN))
	case types.DriverS3:
		store, err = asStore(s3.New(ctx, s3.FromStoreConfig(cfg.S3)))
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrDriverUnknown, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

// asStore keeps a failed constructor from producing a non-nil interface
// holding a nil pointer.
func asStore[S types.Store](s S, err error) (types.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// pathOr returns cfg.Path, or name joined under DataDir when Path is empty.
func pathOr(cfg types.StoreConfig, name string) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}
