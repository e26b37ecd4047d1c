// Package kvtest provides a conformance suite that every key-value Store
// driver runs from its own tests.
package kvtest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// Run exercises the Store contract against stores produced by newStore.
// Each subtest receives a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) types.Store) {
	t.Helper()

	tests := []struct {
		name  string
		check func(t *testing.T, s types.Store)
	}{
		{
			name: "get missing key returns ErrKeyNotFound",
			check: func(t *testing.T, s types.Store) {
				_, err := s.Get(context.Background(), "missing")
				assert.ErrorIs(t, err, types.ErrKeyNotFound)
			},
		},
		{
			name: "put then get round trips bytes",
			check: func(t *testing.T, s types.Store) {
				ctx := context.Background()
				require.NoError(t, s.Put(ctx, types.CategoriesKey, []byte(`[{"id":"1"}]`)))
				got, err := s.Get(ctx, types.CategoriesKey)
				require.NoError(t, err)
				assert.JSONEq(t, `[{"id":"1"}]`, string(got))
			},
		},
		{
			name: "put overwrites existing value",
			check: func(t *testing.T, s types.Store) {
				ctx := context.Background()
				require.NoError(t, s.Put(ctx, types.LinksKey, []byte(`[]`)))
				require.NoError(t, s.Put(ctx, types.LinksKey, []byte(`[{"id":"2"}]`)))
				got, err := s.Get(ctx, types.LinksKey)
				require.NoError(t, err)
				assert.JSONEq(t, `[{"id":"2"}]`, string(got))
			},
		},
		{
			name: "put rejects empty key",
			check: func(t *testing.T, s types.Store) {
				err := s.Put(context.Background(), "", []byte(`{}`))
				assert.ErrorIs(t, err, types.ErrInvalidKey)
			},
		},
		{
			name: "delete removes key and is idempotent",
			check: func(t *testing.T, s types.Store) {
				ctx := context.Background()
				require.NoError(t, s.Put(ctx, "k", []byte(`1`)))
				require.NoError(t, s.Delete(ctx, "k"))
				_, err := s.Get(ctx, "k")
				assert.ErrorIs(t, err, types.ErrKeyNotFound)
				assert.NoError(t, s.Delete(ctx, "k"))
			},
		},
		{
			name: "list filters by prefix",
			check: func(t *testing.T, s types.Store) {
				ctx := context.Background()
				keys := []string{
					types.BackupKey("2026/01/01 03:00:00"),
					types.BackupKey("2026/01/20 03:00:00"),
					types.CategoriesKey,
					types.LinksKey,
				}
				for _, k := range keys {
					require.NoError(t, s.Put(ctx, k, []byte(`{}`)))
				}

				got, err := s.List(ctx, types.BackupKeyPrefix)
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{keys[0], keys[1]}, names(got))

				all, err := s.List(ctx, "")
				require.NoError(t, err)
				assert.ElementsMatch(t, keys, names(all))
			},
		},
		{
			name: "list on empty store returns no keys",
			check: func(t *testing.T, s types.Store) {
				got, err := s.List(context.Background(), types.BackupKeyPrefix)
				require.NoError(t, err)
				assert.Empty(t, got)
			},
		},
		{
			name: "keys with separators and spaces survive",
			check: func(t *testing.T, s types.Store) {
				ctx := context.Background()
				key := types.BackupKey("2026/10/16 17:30:05")
				require.NoError(t, s.Put(ctx, key, []byte(`{"timestamp":"x"}`)))
				got, err := s.Get(ctx, key)
				require.NoError(t, err)
				assert.JSONEq(t, `{"timestamp":"x"}`, string(got))

				listed, err := s.List(ctx, types.BackupKeyPrefix)
				require.NoError(t, err)
				assert.Equal(t, []string{key}, names(listed))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.check(t, s)
		})
	}
}

func names(infos []types.KeyInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Name)
	}
	sort.Strings(out)
	return out
}
