package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/pkg/cache"
	applogger "VariantMap/pkg/logger"
)

var latestKey = cache.GenerateKey("map", "latest")

// CachedMap keeps the latest snapshot in a cache.Service. On a miss it
// reads through to the fallback reader, if any, and refills the cache.
type CachedMap struct {
	c        cache.Service
	fallback domrepo.MapReader
	ttl      time.Duration
	l        *applogger.Logger
}

var (
	_ domrepo.MapCache = (*CachedMap)(nil)
	_ domrepo.MapSink  = (*CachedMap)(nil)
)

// NewCachedMap creates the cache. ttl <= 0 keeps the entry until replaced.
func NewCachedMap(c cache.Service, fallback domrepo.MapReader, ttl time.Duration) *CachedMap {
	return &CachedMap{c: c, fallback: fallback, ttl: ttl}
}

// SetLogger injects a structured logger.
func (m *CachedMap) SetLogger(l *applogger.Logger) { m.l = l }

func (m *CachedMap) Name() string { return "cache" }

func (m *CachedMap) Put(ctx context.Context, snap *models.Snapshot) error {
	if err := m.c.Set(ctx, latestKey, snap, m.ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (m *CachedMap) Write(ctx context.Context, run *models.RunResult) error {
	return m.Put(ctx, run.Snapshot())
}

func (m *CachedMap) Latest(ctx context.Context) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := m.c.Get(ctx, latestKey, &snap)
	if err == nil {
		return &snap, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && m.l != nil {
		m.l.Warn("map cache read failed", applogger.Error(err))
	}
	if m.fallback == nil {
		return nil, domrepo.ErrNotFound
	}

	fresh, ferr := m.fallback.Latest(ctx)
	if ferr != nil {
		return nil, ferr
	}
	if perr := m.Put(ctx, fresh); perr != nil && m.l != nil {
		m.l.Warn("map cache refill failed", applogger.Error(perr))
	}
	return fresh, nil
}

// Close is a no-op; the cache service is owned by the caller.
func (m *CachedMap) Close() error { return nil }
