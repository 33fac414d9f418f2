package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct {
	failGet bool
	failSet bool
	inner   *MemoryDirectoryCache
}

func newFailingCache() *failingCache {
	return &failingCache{inner: NewMemoryDirectoryCache(time.Hour)}
}

func (f *failingCache) GetLockers(ctx context.Context) ([]models.Locker, error) {
	if f.failGet {
		return nil, errors.New("primary down")
	}
	return f.inner.GetLockers(ctx)
}

func (f *failingCache) SetLockers(ctx context.Context, lockers []models.Locker) error {
	if f.failSet {
		return errors.New("primary down")
	}
	return f.inner.SetLockers(ctx, lockers)
}

func (f *failingCache) Invalidate(ctx context.Context) error {
	if f.failSet {
		return errors.New("primary down")
	}
	return f.inner.Invalidate(ctx)
}

func TestFailoverDirectoryCache_PrimaryHealthy(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	primary := newFailingCache()
	fallback := NewMemoryDirectoryCache(time.Hour)
	cache := NewFailoverDirectoryCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.SetLockers(ctx, testLockers()))

	got, err := cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Fallback was kept warm alongside the primary.
	warm, err := fallback.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, warm, 2)
}

func TestFailoverDirectoryCache_FallsBack(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	primary := newFailingCache()
	fallback := NewMemoryDirectoryCache(time.Hour)
	cache := NewFailoverDirectoryCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.SetLockers(ctx, testLockers()))

	primary.failGet = true
	got, err := cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2, "fallback should serve the warm copy")

	// Once marked down, the primary is not retried before the cooldown.
	primary.failGet = false
	got, err = cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, cache.isDown.Load())
}

func TestFailoverDirectoryCache_SetFallsBack(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	primary := newFailingCache()
	primary.failSet = true
	fallback := NewMemoryDirectoryCache(time.Hour)
	cache := NewFailoverDirectoryCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.SetLockers(ctx, testLockers()))

	got, err := fallback.GetLockers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFailoverDirectoryCache_InvalidateClearsBoth(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	primary := newFailingCache()
	fallback := NewMemoryDirectoryCache(time.Hour)
	cache := NewFailoverDirectoryCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, cache.SetLockers(ctx, testLockers()))
	require.NoError(t, cache.Invalidate(ctx))

	got, err := cache.GetLockers(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
