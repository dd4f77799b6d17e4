package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCache(), metrics, 0, nil, true)
	ctx := context.Background()

	var dest map[string]int
	assert.False(t, cache.Get(ctx, "k", &dest))
	cache.Set(ctx, "k", map[string]int{"a": 1}, 0)
	require.True(t, cache.Get(ctx, "k", &dest))
	assert.Equal(t, 1, dest["a"])

	snap := metrics.Snapshot()
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabledAndFailing(t *testing.T) {
	ctx := context.Background()
	var dest map[string]int

	disabled := NewCacheService(newMemoryCache(), nil, time.Minute, nil, false)
	assert.False(t, disabled.Enabled())
	disabled.Set(ctx, "k", map[string]int{"a": 1}, 0)
	assert.False(t, disabled.Get(ctx, "k", &dest))

	var nilCache *CacheService
	assert.False(t, nilCache.Get(ctx, "k", &dest))
	assert.NoError(t, nilCache.Invalidate(ctx, "*"))

	broken := NewCacheService(brokenCache{}, nil, time.Minute, nil, true)
	assert.False(t, broken.Get(ctx, "k", &dest))
	broken.Set(ctx, "k", 1, 0)
	assert.Error(t, broken.Invalidate(ctx, "*"))
}
