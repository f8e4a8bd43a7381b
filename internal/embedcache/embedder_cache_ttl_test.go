package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askgate/internal/cache"
)

type countingEmbedder struct {
	vec   []float32
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	c.calls++
	return c.vec, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

func newTestCache(t *testing.T) *cache.TTLCache[[]float32] {
	t.Helper()
	ttlCache, err := cache.New[[]float32](map[string]time.Duration{"day": time.Hour}, 16)
	require.NoError(t, err)
	return ttlCache
}

func TestTTLEmbedderMemoizesRepeatedText(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1, 2}}
	embedder := WrapTTLCacheToEmbedder(upstream, newTestCache(t), "day")

	first, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, upstream.calls)
}

func TestTTLEmbedderKeySeparatesTaskTypes(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1}}
	embedder := WrapTTLCacheToEmbedder(upstream, newTestCache(t), "day")

	_, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = embedder.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, upstream.calls)
}

func TestTTLEmbedderReturnsCopy(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1, 2}}
	embedder := WrapTTLCacheToEmbedder(upstream, newTestCache(t), "day")

	first, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 99

	second, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(1), second[0])
}

func TestBuildCacheKey(t *testing.T) {
	key, contentHash, modelName := buildCacheKey("  ", "RETRIEVAL_QUERY", "hello")
	require.Equal(t, "unknown", modelName)
	require.Len(t, contentHash, 64)
	require.Contains(t, key, "embed:unknown:RETRIEVAL_QUERY:")

	keyA, _, _ := buildCacheKey("m", "q", "text one")
	keyB, _, _ := buildCacheKey("m", "q", "text two")
	require.NotEqual(t, keyA, keyB)
}

func TestWrapTTLCacheNilPassthrough(t *testing.T) {
	upstream := &countingEmbedder{vec: []float32{1}}
	require.Equal(t, upstream, WrapTTLCacheToEmbedder(upstream, nil, "day"))
}
