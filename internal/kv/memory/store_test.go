package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkshelf/internal/kv/kvtest"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

func TestConformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) types.Store { return New() })
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("abc")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
