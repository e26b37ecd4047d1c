// Package store provides the public API for opening a linkshelf key-value
// store. It exposes the driver factory while keeping the drivers internal.
package store

import (
	"context"

	"github.com/mesh-intelligence/linkshelf/internal/kv"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// Open validates cfg and opens the selected driver. The caller must Close
// the returned store.
//
// Example:
//
//	s, err := store.Open(ctx, types.StoreConfig{
//	    Driver:  types.DriverBolt,
//	    DataDir: ".linkshelf-db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
func Open(ctx context.Context, cfg types.StoreConfig) (types.Store, error) {
	return kv.Open(ctx, cfg)
}
