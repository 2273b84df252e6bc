package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle lets at most one event through per interval. The first event is
// never delayed.
type Throttle struct {
	inner *rate.Limiter
}

// NewThrottle creates a throttle. A non-positive interval disables it.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{inner: rate.NewLimiter(limit, 1)}
}

// Allow reports whether an event may happen now, consuming the slot if so.
func (t *Throttle) Allow() bool {
	return t.inner.Allow()
}

// Wait blocks until the next event may happen or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.inner.Wait(ctx)
}
