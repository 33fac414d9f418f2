package repository

import (
	"context"
	"sync"
	"time"

	"pickpoint/internal/models"
)

type MemoryDirectoryCache struct {
	mu        sync.RWMutex
	lockers   []models.Locker
	expiresAt time.Time
	ttl       time.Duration
}

func NewMemoryDirectoryCache(ttl time.Duration) *MemoryDirectoryCache {
	return &MemoryDirectoryCache{
		ttl: ttl,
	}
}

func (r *MemoryDirectoryCache) GetLockers(ctx context.Context) ([]models.Locker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lockers == nil || time.Now().After(r.expiresAt) {
		return nil, nil
	}
	out := make([]models.Locker, len(r.lockers))
	copy(out, r.lockers)
	return out, nil
}

func (r *MemoryDirectoryCache) SetLockers(ctx context.Context, lockers []models.Locker) error {
	stored := make([]models.Locker, len(lockers))
	copy(stored, lockers)

	r.mu.Lock()
	r.lockers = stored
	r.expiresAt = time.Now().Add(r.ttl)
	r.mu.Unlock()
	return nil
}

func (r *MemoryDirectoryCache) Invalidate(ctx context.Context) error {
	r.mu.Lock()
	r.lockers = nil
	r.mu.Unlock()
	return nil
}
