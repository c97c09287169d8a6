package cache

import (
	"context"
	"time"
)

// LayeredCache implements a two-level cache: L1 in memory, optional L2 (Redis).
// Without L2 it behaves as a plain memory cache.
type LayeredCache struct {
	memCache *MemoryCache
	l2       Service
	memTTL   time.Duration
}

// NewLayeredCache creates a layered cache; l2 may be nil.
func NewLayeredCache(l2 Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		l2:       l2,
		memTTL:   cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// write-through: L2 first, then memory
	if lc.l2 != nil {
		if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return lc.memCache.Set(ctx, key, value, lc.l1TTL(expiration))
}

func (lc *LayeredCache) l1TTL(expiration time.Duration) time.Duration {
	if lc.l2 == nil {
		return expiration
	}
	if expiration <= 0 || expiration > lc.memTTL {
		return lc.memTTL
	}
	return expiration
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}
	if lc.l2 == nil {
		return ErrCacheMiss
	}

	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, dest, lc.memTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.memCache.Exists(ctx, keys...); ok || lc.l2 == nil {
		return ok, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// TryLock and Unlock go to L2 when present so locks are shared across instances.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if lc.l2 == nil {
		return lc.memCache.TryLock(ctx, key, ttl)
	}
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	if lc.l2 == nil {
		return lc.memCache.Unlock(ctx, key)
	}
	return lc.l2.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Close()
}
