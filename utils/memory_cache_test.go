package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("k1", "v1", time.Minute)
	value, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()

	// A negative TTL produces an already-expired entry.
	cache.Set("k1", "v1", -time.Second)
	_, ok := cache.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("k1", 1, time.Minute)
	cache.Set("k2", 2, time.Minute)
	assert.Equal(t, 2, cache.Size())
	assert.ElementsMatch(t, []string{"k1", "k2"}, cache.Keys())

	cache.Delete("k1")
	_, ok := cache.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCacheOverwrite(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("k1", "old", time.Minute)
	cache.Set("k1", "new", time.Minute)

	value, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "new", value)
	assert.Equal(t, 1, cache.Size())
}
