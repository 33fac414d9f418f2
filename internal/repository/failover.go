package repository

import (
	"context"
	"sync/atomic"
	"time"

	"pickpoint/internal/domain"
	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// FailoverDirectoryCache serves from the primary (Redis) cache and falls
// back to the in-memory one when the primary fails, probing the primary
// again after a cooldown.
type FailoverDirectoryCache struct {
	primary   domain.DirectoryCache
	fallback  domain.DirectoryCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverDirectoryCache(primary, fallback domain.DirectoryCache, logger *zerolog.Logger) *FailoverDirectoryCache {
	return &FailoverDirectoryCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverDirectoryCache) GetLockers(ctx context.Context) ([]models.Locker, error) {
	if !r.isDown.Load() {
		lockers, err := r.primary.GetLockers(ctx)
		if err == nil {
			return lockers, nil
		}
		r.logger.Error().Err(err).Msg("Primary directory cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		lockers, err := r.primary.GetLockers(ctx)
		if err == nil {
			r.isDown.Store(false)
			return lockers, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetLockers(ctx)
}

func (r *FailoverDirectoryCache) SetLockers(ctx context.Context, lockers []models.Locker) error {
	if !r.isDown.Load() {
		err := r.primary.SetLockers(ctx, lockers)
		if err == nil {
			// Keep the fallback warm so a later failover still serves data.
			_ = r.fallback.SetLockers(ctx, lockers)
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary directory cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetLockers(ctx, lockers)
}

func (r *FailoverDirectoryCache) Invalidate(ctx context.Context) error {
	var primaryErr error
	if !r.isDown.Load() {
		primaryErr = r.primary.Invalidate(ctx)
		if primaryErr != nil {
			r.logger.Error().Err(primaryErr).Msg("Primary directory cache failed, falling back to memory")
			r.isDown.Store(true)
			r.lastCheck = time.Now()
		}
	}

	// Both sides must drop stale data.
	return r.fallback.Invalidate(ctx)
}
