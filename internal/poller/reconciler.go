package poller

import (
	"context"
	"sync"
	"time"

	"pickpoint/internal/metrics"
	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// Reconciler refreshes a single piece of view state on a fixed interval.
// Each refresh fully replaces the local copy with the server's response.
// Refreshes are tagged with a sequence number at initiation; a response
// is applied only if no later-initiated refresh has resolved before it,
// success or failure, so a slow response can never clobber newer state.
type Reconciler[T any] struct {
	name     string
	interval time.Duration
	fetch    func(context.Context) (T, error)
	apply    func(T)
	logger   *zerolog.Logger

	mu          sync.Mutex
	nextSeq     uint64
	resolvedSeq uint64 // наибольший seq с известным исходом
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
	inFlight    sync.WaitGroup
	startedOnce sync.Once
}

// NewReconciler builds a reconciler. A non-positive interval falls back
// to the standard 5s refresh cadence.
func NewReconciler[T any](name string, interval time.Duration, fetch func(context.Context) (T, error), apply func(T), logger *zerolog.Logger) *Reconciler[T] {
	if interval <= 0 {
		interval = models.DefaultPollInterval
	}
	return &Reconciler[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic refresh loop. An immediate first refresh
// runs before the first tick.
func (r *Reconciler[T]) Start(ctx context.Context) {
	r.startedOnce.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		go r.loop(ctx)
	})
}

func (r *Reconciler[T]) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh initiates one fetch. It does not wait for earlier refreshes;
// overlapping fetches are resolved by initiation order.
func (r *Reconciler[T]) Refresh(ctx context.Context) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.nextSeq++
	seq := r.nextSeq
	r.inFlight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inFlight.Done()

		value, err := r.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Warn().Err(err).Str("reconciler", r.name).Msg("Refresh failed")
			}
			r.fail(seq)
			return
		}
		r.complete(seq, value)
	}()
}

func (r *Reconciler[T]) complete(seq uint64, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Torn down, or a later-initiated refresh already resolved. A failed
	// later refresh counts too: its initiation superseded this one.
	if r.stopped || seq <= r.resolvedSeq {
		metrics.IncRefresh("discarded")
		return
	}
	r.resolvedSeq = seq
	r.apply(value)
	metrics.IncRefresh("applied")
}

func (r *Reconciler[T]) fail(seq uint64) {
	r.mu.Lock()
	if seq > r.resolvedSeq {
		r.resolvedSeq = seq
	}
	r.mu.Unlock()
	metrics.IncRefresh("failed")
}

// Stop halts the loop and marks any in-flight refresh as to-be-ignored.
// A response arriving after Stop is never applied.
func (r *Reconciler[T]) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-r.done
	}
	r.inFlight.Wait()
}
