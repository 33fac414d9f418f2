package client

import (
	"context"
	"sync"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// DirectoryLoader wraps the locker list fetch with the single documented
// auto-retry: when connectivity comes back after a failed load, the load
// is retried once. Every other failure path is manual-retry only.
type DirectoryLoader struct {
	client *Client
	logger *zerolog.Logger

	mu         sync.Mutex
	lastFailed bool
	onLoaded   func([]models.Locker)
}

func NewDirectoryLoader(c *Client, logger *zerolog.Logger, onLoaded func([]models.Locker)) *DirectoryLoader {
	return &DirectoryLoader{client: c, logger: logger, onLoaded: onLoaded}
}

// Load fetches the locker directory and records the outcome for the
// reconnect hook.
func (l *DirectoryLoader) Load(ctx context.Context) ([]models.Locker, error) {
	lockers, err := l.client.GetLockers(ctx)

	l.mu.Lock()
	l.lastFailed = err != nil
	l.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if l.onLoaded != nil {
		l.onLoaded(lockers)
	}
	return lockers, nil
}

// NotifyOnline is called when connectivity transitions from offline to
// online. It retries the directory load once, and only if the last
// attempt failed.
func (l *DirectoryLoader) NotifyOnline(ctx context.Context) {
	l.mu.Lock()
	retry := l.lastFailed
	l.mu.Unlock()

	if !retry {
		return
	}

	l.logger.Info().Msg("Connectivity restored, retrying locker directory load")
	if _, err := l.Load(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("Locker directory reload after reconnect failed")
	}
}
