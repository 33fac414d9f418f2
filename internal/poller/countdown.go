package poller

import (
	"context"
	"time"

	"pickpoint/internal/models"
)

// CountdownTicker recomputes the payment countdown once a second and
// pushes the formatted "M:SS" value to the callback. Pure presentation:
// it never transitions the order, the server's expiry sweep does that.
type CountdownTicker struct {
	deadline time.Time
	onTick   func(display string)
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewCountdownTicker(deadline time.Time, onTick func(display string)) *CountdownTicker {
	return &CountdownTicker{
		deadline: deadline,
		onTick:   onTick,
		done:     make(chan struct{}),
	}
}

// Start emits the current value immediately, then every second until the
// countdown reaches "Expired" or ctx is cancelled.
func (c *CountdownTicker) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
}

func (c *CountdownTicker) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		display := models.PaymentCountdown(c.deadline, time.Now())
		c.onTick(display)
		if display == models.CountdownExpired {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the ticker; no callback fires after it returns.
func (c *CountdownTicker) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}
