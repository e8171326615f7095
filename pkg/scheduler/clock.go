package scheduler

import (
	"context"
	"time"
)

// Clock is the time source and sleep primitive used for rate limiting.
type Clock interface {
	// Now returns the current time. Only differences between values are
	// used, so the monotonic reading of time.Now is sufficient.
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real clock. Sleep parks the goroutine on a timer.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return contextSleep(ctx, d)
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
