package embedder

import (
	"context"
	"testing"

	"github.com/soundprediction/textencode/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedClient(t *testing.T) {
	db, err := OpenCache(config.CacheConfig{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	inner := newFakeClient("m")
	cached := NewCachedClient(inner, db, "m")

	first, err := cached.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, first)

	second, err := cached.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 2}, {3, 3}, {1, 1}}, second)

	require.Len(t, inner.batches, 2)
	assert.Equal(t, []string{"ccc"}, inner.batches[1], "only misses reach the provider")

	// A different model id never sees another model's entries.
	other := newFakeClient("other")
	_, err = NewCachedClient(other, db, "other").Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.calls())
}

func TestOpenCacheRequiresPath(t *testing.T) {
	_, err := OpenCache(config.CacheConfig{})
	assert.Error(t, err)

	db, err := OpenCache(config.CacheConfig{Path: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestEmbedSingle(t *testing.T) {
	out, err := EmbedSingle(context.Background(), newFakeClient("m"), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 4}, out)
}
