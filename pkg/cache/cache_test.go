package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", payload{Name: "a", N: 2}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "a", N: 2}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &s))
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "build", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "build", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "build"))
	ok, _ = mc.TryLock(ctx, "build", time.Minute)
	assert.True(t, ok)
}

func TestLayeredPromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", payload{Name: "x"}, 0))
	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "x", got.Name)

	require.NoError(t, l2.Delete(ctx, "k"))
	got = payload{}
	require.NoError(t, lc.Get(ctx, "k", &got), "served from L1")
	assert.Equal(t, "x", got.Name)
}

func TestLayeredWithoutL2(t *testing.T) {
	ctx := context.Background()
	lc := NewLayeredCache(nil)
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", payload{N: 7}, 0))
	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, 7, got.N)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)

	ok, err := lc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "variantmap:map:latest", GenerateKey("variantmap", "map:latest"))
	assert.Equal(t, "p:a:1", GenerateKeyWithParams("p", "a", 1))
}
