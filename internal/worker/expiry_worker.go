package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// OverdueExpirer is the slice of the order service the worker needs.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error)
}

// ExpiryWorker periodically expires orders whose payment deadline has
// passed. The server is the authority on expiry; client countdowns are
// display only. Failed scans back off exponentially so a broken database
// does not get hammered every tick.
type ExpiryWorker struct {
	orders   OverdueExpirer
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewExpiryWorker(orders OverdueExpirer, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		orders:   orders,
		interval: interval,
		retry: RetryPolicy{
			MaxRetries:    0, // бесконечно, скан должен пережить любой сбой
			InitialDelay:  interval,
			MaxDelay:      5 * time.Minute,
			BackoffFactor: 2,
		},
		logger: logger,
	}
}

// Start runs the scan loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("Expiry worker started")
	defer w.logger.Info().Msg("Expiry worker stopped")

	failures := 0
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := w.scan(ctx); err != nil {
			failures++
			delay := w.retry.NextDelay(failures)
			w.logger.Error().Err(err).Dur("next_scan_in", delay).Msg("Expiry scan failed")
			timer.Reset(delay)
			continue
		}

		failures = 0
		timer.Reset(w.interval)
	}
}

func (w *ExpiryWorker) scan(ctx context.Context) error {
	expired, err := w.orders.ExpireOverdue(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(expired) > 0 {
		w.logger.Info().Ints64("order_ids", expired).Msg("Expired overdue orders")
	}
	return nil
}
