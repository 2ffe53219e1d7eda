package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis down")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis down")
}

func (failingCacheRepo) DeleteByPrefix(ctx context.Context, prefix string) error {
	return errors.New("redis down")
}

func TestCachedLoadsOnceThenHits(t *testing.T) {
	cache := NewCacheService(newMockCacheRepo(), NewMetricsService(), time.Minute, nil, true)
	loads := 0
	load := func(ctx context.Context) ([]string, error) {
		loads++
		return []string{"CS101"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cached(context.Background(), cache, cacheKeyCourses+"all", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"CS101"}, got)
	}
	assert.Equal(t, 1, loads)

	cache.Invalidate(context.Background(), cacheKeyCourses)
	_, err := cached(context.Background(), cache, cacheKeyCourses+"all", load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestCacheFailuresFallThrough(t *testing.T) {
	cache := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, true)
	got, err := cached(context.Background(), cache, "k", func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	cache.Invalidate(context.Background(), "k")
}

func TestDisabledOrNilCache(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.False(t, NewCacheService(newMockCacheRepo(), nil, 0, nil, false).Enabled())
	assert.False(t, NewCacheService(nil, nil, 0, nil, true).Enabled())

	got, err := cached(context.Background(), nilCache, "k", func(ctx context.Context) (string, error) { return "v", nil })
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
