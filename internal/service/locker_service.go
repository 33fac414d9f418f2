package service

import (
	"context"

	"pickpoint/internal/domain"
	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// LockerDirectoryService serves the read-only locker directory, fronted
// by a cache so the list endpoint does not hit SQLite on every poll tick.
// Availability changes invalidate the cache via the order event bus, so a
// stale cached list can only under-report for at most the cache TTL.
type LockerDirectoryService struct {
	repo   domain.LockerRepository
	cache  domain.DirectoryCache
	logger *zerolog.Logger
}

func NewLockerDirectoryService(repo domain.LockerRepository, cache domain.DirectoryCache, logger *zerolog.Logger) *LockerDirectoryService {
	return &LockerDirectoryService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *LockerDirectoryService) GetLockers(ctx context.Context) ([]models.Locker, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLockers(ctx)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("Locker directory cache read failed, serving from database")
		}
	}

	lockers, err := s.repo.GetLockers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLockers(ctx, lockers); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to populate locker directory cache")
		}
	}
	return lockers, nil
}

// GetLocker always reads the database: single-locker detail is cheap and
// the caller usually wants the freshest availability.
func (s *LockerDirectoryService) GetLocker(ctx context.Context, id int64) (*models.Locker, error) {
	return s.repo.GetLocker(ctx, id)
}

// InvalidateCache drops the cached directory. Wired to order transition
// events since every transition can change availability.
func (s *LockerDirectoryService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate locker directory cache")
	}
}
