package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestCachedSnapshotSourceCachesHitsAndMisses(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Hour, nil, true)
	pages := &fakeSnapshotSource{pages: map[int]*models.CourseSnapshot{2019: {Code: "TDT4120", NorwegianName: "Algoritmer"}}}
	source := NewCachedSnapshotSource(pages, cache, time.Hour, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		snap, err := source.CourseSnapshot(ctx, "TDT4120", 2019)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "Algoritmer", snap.NorwegianName)

		missing, err := source.CourseSnapshot(ctx, "TDT4120", 2018)
		require.NoError(t, err)
		assert.Nil(t, missing)
	}

	assert.Equal(t, []int{2019, 2018}, pages.asked)
	assert.Equal(t, time.Hour, repo.ttls[SnapshotCacheKey("TDT4120", 2019)])
	assert.Equal(t, time.Minute, repo.ttls[SnapshotCacheKey("TDT4120", 2018)])
}

func TestCachedSnapshotSourceDoesNotCacheFailures(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Hour, nil, true)
	pages := &fakeSnapshotSource{fail: map[int]bool{0: true}}
	source := NewCachedSnapshotSource(pages, cache, time.Hour, time.Minute, nil)

	_, err := source.CourseSnapshot(context.Background(), "TDT4120", 0)
	require.Error(t, err)
	_, err = source.CourseSnapshot(context.Background(), "TDT4120", 0)
	require.Error(t, err)
	assert.Len(t, pages.asked, 2)
	assert.Empty(t, repo.entries)
}

func TestCachedSnapshotSourceForget(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Hour, nil, true)
	pages := &fakeSnapshotSource{}
	source := NewCachedSnapshotSource(pages, cache, time.Hour, time.Minute, nil)
	ctx := context.Background()

	_, _ = source.CourseSnapshot(ctx, "TDT4120", 2019)
	require.NoError(t, source.Forget(ctx, "TDT4120"))
	_, _ = source.CourseSnapshot(ctx, "TDT4120", 2019)
	assert.Equal(t, []int{2019, 2019}, pages.asked)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Hour, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", "v", 0))
	hit, err := cache.Get(context.Background(), "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.entries)
}

type brokenCacheRepo struct{ memoryCacheRepo }

func (b *brokenCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis: connection refused")
}

func TestCacheServiceGetSurfacesBackendErrors(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(&brokenCacheRepo{}, metrics, time.Hour, nil, true)

	hit, err := cache.Get(context.Background(), "k", new(string))
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheMisses)
}
