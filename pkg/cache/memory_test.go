package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagship-io/flagship-go/pkg/cache"
)

func TestMemoryCacheVisitors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemoryCache()

	t.Run("MissIsNilNil", func(t *testing.T) {
		data, err := c.LookupVisitor(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("StoreAndLookup", func(t *testing.T) {
		require.NoError(t, c.CacheVisitor(ctx, "v1", []byte(`{"a":1}`)))
		data, err := c.LookupVisitor(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), data)
	})

	t.Run("OverwriteReplaces", func(t *testing.T) {
		require.NoError(t, c.CacheVisitor(ctx, "v1", []byte(`{"a":2}`)))
		data, err := c.LookupVisitor(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":2}`), data)
	})

	t.Run("FlushIsIdempotent", func(t *testing.T) {
		require.NoError(t, c.FlushVisitor(ctx, "v1"))
		require.NoError(t, c.FlushVisitor(ctx, "v1"))
		data, err := c.LookupVisitor(ctx, "v1")
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestMemoryCacheHits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemoryCache()

	require.NoError(t, c.CacheHits(ctx, map[string][]byte{
		"h1": []byte(`1`),
		"h2": []byte(`2`),
		"h3": []byte(`3`),
	}))

	all, err := c.LookupHits(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, c.FlushHits(ctx, []string{"h1", "h3", "missing"}))
	all, err = c.LookupHits(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []byte(`2`), all["h2"])

	require.NoError(t, c.FlushAllHits(ctx))
	all, err = c.LookupHits(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
