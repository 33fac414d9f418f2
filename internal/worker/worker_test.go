package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	assert.Equal(t, 10*time.Second, policy.NextDelay(10), "clamped to MaxDelay")
	assert.Equal(t, time.Second, policy.NextDelay(0), "attempt below 1 treated as first")
}

func TestRetryPolicyDefaults(t *testing.T) {
	var policy RetryPolicy
	d := policy.NextDelay(3)
	assert.Greater(t, d, time.Duration(0))
}

type stubExpirer struct {
	mu      sync.Mutex
	calls   int
	failFor int
	expired []int64
}

func (s *stubExpirer) ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFor {
		return nil, errors.New("database is locked")
	}
	return s.expired, nil
}

func (s *stubExpirer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestExpiryWorkerScans(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	stub := &stubExpirer{expired: []int64{1, 2}}

	w := NewExpiryWorker(stub, 5*time.Millisecond, &logger)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return stub.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestExpiryWorkerRecoversAfterFailures(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	stub := &stubExpirer{failFor: 2}

	w := NewExpiryWorker(stub, time.Millisecond, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	// Two failing scans back off, then the loop returns to normal cadence.
	require.Eventually(t, func() bool { return stub.callCount() >= 4 }, 3*time.Second, 5*time.Millisecond)
}
