package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

// cachedSnapshot also records pages known to be missing.
type cachedSnapshot struct {
	Found    bool                   `json:"found"`
	Snapshot *models.CourseSnapshot `json:"snapshot,omitempty"`
}

// CachedSnapshotSource remembers course page lookups, including misses, so
// repeated runs do not walk the same years again. Failures are never cached.
type CachedSnapshotSource struct {
	source  SnapshotSource
	cache   *CacheService
	ttl     time.Duration
	missTTL time.Duration
	logger  *zap.Logger
}

// NewCachedSnapshotSource wraps source with cache.
func NewCachedSnapshotSource(source SnapshotSource, cache *CacheService, ttl, missTTL time.Duration, logger *zap.Logger) *CachedSnapshotSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSnapshotSource{source: source, cache: cache, ttl: ttl, missTTL: missTTL, logger: logger}
}

// CourseSnapshot implements SnapshotSource.
func (c *CachedSnapshotSource) CourseSnapshot(ctx context.Context, code string, year int) (*models.CourseSnapshot, error) {
	key := SnapshotCacheKey(code, year)

	var cached cachedSnapshot
	if hit, _ := c.cache.Get(ctx, key, &cached); hit {
		if !cached.Found {
			return nil, nil
		}
		return cached.Snapshot, nil
	}

	snapshot, err := c.source.CourseSnapshot(ctx, code, year)
	if err != nil {
		return nil, err
	}

	entry, ttl := cachedSnapshot{Found: snapshot != nil, Snapshot: snapshot}, c.ttl
	if snapshot == nil {
		ttl = c.missTTL
	}
	if err := c.cache.Set(ctx, key, entry, ttl); err != nil {
		c.logger.Debug("snapshot not cached", zap.String("course", code), zap.Int("year", year), zap.Error(err))
	}
	return snapshot, nil
}

// Forget drops every cached page of a course.
func (c *CachedSnapshotSource) Forget(ctx context.Context, code string) error {
	return c.cache.Invalidate(ctx, SnapshotCachePattern(code))
}
