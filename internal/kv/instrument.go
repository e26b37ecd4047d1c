package kv

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/linkshelf/internal/metrics"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var _ types.Store = (*instrumented)(nil)

// instrumented counts every call on the wrapped store.
type instrumented struct {
	next    types.Store
	driver  string
	metrics *metrics.Metrics
}

// Instrument wraps store so each operation is counted under driver. A miss
// on Get is counted as ok.
func Instrument(store types.Store, driver string, m *metrics.Metrics) types.Store {
	if m == nil {
		return store
	}
	return &instrumented{next: store, driver: driver, metrics: m}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := i.next.Get(ctx, key)
	if errors.Is(err, types.ErrKeyNotFound) {
		i.metrics.StoreOp(i.driver, "get", nil)
	} else {
		i.metrics.StoreOp(i.driver, "get", err)
	}
	return v, err
}

func (i *instrumented) Put(ctx context.Context, key string, value []byte) error {
	err := i.next.Put(ctx, key, value)
	i.metrics.StoreOp(i.driver, "put", err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.next.Delete(ctx, key)
	i.metrics.StoreOp(i.driver, "delete", err)
	return err
}

func (i *instrumented) List(ctx context.Context, prefix string) ([]types.KeyInfo, error) {
	out, err := i.next.List(ctx, prefix)
	i.metrics.StoreOp(i.driver, "list", err)
	return out, err
}

func (i *instrumented) Close() error { return i.next.Close() }
