// Package rendezvous implements the hand-off between mutators and the
// scheduler. The scheduler publishes a monotonically increasing count of
// completed ticks; a mutator waits until that count reaches the tick that is
// guaranteed to have observed its change.
//
// The counter is never reset, so any number of goroutines waiting on the same
// tick are all released by a single broadcast.
package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTerminated is returned to waiters once the barrier has been terminated
// and the tick they wait for can no longer arrive.
var ErrTerminated = errors.New("rendezvous: scheduler terminated")

// Barrier is safe for concurrent use. The zero value is ready to use.
type Barrier struct {
	mu        sync.Mutex
	once      sync.Once
	completed uint64
	signal    chan struct{} // closed and replaced on every Release
	done      chan struct{} // closed once by Terminate
	cause     error
}

// New creates a Barrier.
func New() *Barrier {
	b := &Barrier{}
	b.init()
	return b
}

// init ensures internal channels are allocated.
func (b *Barrier) init() {
	b.once.Do(func() {
		b.signal = make(chan struct{})
		b.done = make(chan struct{})
	})
}

// Completed returns the last completed tick.
func (b *Barrier) Completed() uint64 {
	b.init()
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.completed
}

// Release marks tick as completed and wakes every waiter. Ticks never move
// backwards: releasing an older tick only re-broadcasts.
func (b *Barrier) Release(tick uint64) {
	b.init()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cause != nil {
		return
	}

	b.completed = max(b.completed, tick)
	close(b.signal)
	b.signal = make(chan struct{})
}

// Terminate stops the barrier. Every current and future Wait whose target has
// not already been reached returns an error wrapping both ErrTerminated and
// cause. Only the first call has any effect.
func (b *Barrier) Terminate(cause error) {
	b.init()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cause != nil {
		return
	}
	if cause == nil {
		cause = errors.New("no cause given")
	}

	b.cause = cause
	close(b.done)
}

// Err returns nil while the barrier is live, or the termination error.
func (b *Barrier) Err() error {
	b.init()
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.errLocked()
}

// Done is closed when the barrier is terminated.
func (b *Barrier) Done() <-chan struct{} {
	b.init()
	return b.done
}

func (b *Barrier) errLocked() error {
	if b.cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTerminated, b.cause)
}

// Wait blocks until tick target has completed and returns the completed tick
// it observed. It returns early with an error if the barrier is terminated
// first or ctx is done.
func (b *Barrier) Wait(ctx context.Context, target uint64) (uint64, error) {
	b.init()

	for {
		b.mu.Lock()
		completed := b.completed
		err := b.errLocked()
		sig := b.signal
		b.mu.Unlock()

		if completed >= target {
			return completed, nil
		}
		if err != nil {
			return completed, err
		}

		select {
		case <-ctx.Done():
			return completed, ctx.Err()
		case <-b.done:
		case <-sig:
		}
	}
}
