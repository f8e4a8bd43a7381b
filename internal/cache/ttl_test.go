package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCachePutGet(t *testing.T) {
	c, err := New[string](map[string]time.Duration{
		"short": 50 * time.Millisecond,
		"long":  time.Hour,
	}, 16)
	require.NoError(t, err)

	require.NoError(t, c.Put("k1", "v1", "short"))
	require.NoError(t, c.Put("k2", "v2", "long"))

	v, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v)

	time.Sleep(80 * time.Millisecond)

	_, ok = c.Get("k1")
	require.False(t, ok, "expired entry must read as a clean miss")

	v, ok = c.Get("k2")
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestTTLCacheUnknownBand(t *testing.T) {
	c, err := New[int](map[string]time.Duration{"short": time.Second}, 4)
	require.NoError(t, err)
	require.Error(t, c.Put("k", 1, "nope"))
}

func TestTTLCacheRebandReplaces(t *testing.T) {
	c, err := New[int](map[string]time.Duration{
		"short": 50 * time.Millisecond,
		"long":  time.Hour,
	}, 4)
	require.NoError(t, err)

	require.NoError(t, c.Put("k", 1, "long"))
	require.NoError(t, c.Put("k", 2, "short"))

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok, "rebanded entry must follow the new band's ttl")
}

func TestTTLCacheRequiresBands(t *testing.T) {
	_, err := New[int](nil, 4)
	require.Error(t, err)
	_, err = New[int](map[string]time.Duration{"bad": 0}, 4)
	require.Error(t, err)
}
