// Package scheduler drives the render loop. A single goroutine repeatedly
// waits until the configured minimum interval has passed since the previous
// tick started, drains a frame from the registry, hands it to the renderer
// and releases the rendezvous barrier for that tick.
//
// Elapsed time is always measured against the clock, never accumulated from
// sleep durations, so the loop does not drift.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/rendezvous"
)

var (
	// ErrStopped is the termination cause when the scheduler's context ends.
	ErrStopped = errors.New("scheduler: stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// RenderError reports a renderer failure. It is fatal to the scheduler.
type RenderError struct {
	Tick uint64
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("scheduler: render tick %d: %v", e.Tick, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// TickInfo describes one completed tick.
type TickInfo struct {
	Tick   uint64
	Start  time.Time
	Render time.Duration
	Agents int
	Ops    int
}

// Stats are cumulative counters for the loop. Slept and Sleeps account for
// every rate-limiting pause, which is how callers can tell that the loop
// waits instead of spinning.
type Stats struct {
	Ticks      uint64
	Sleeps     uint64
	Slept      time.Duration
	LastStart  time.Time
	LastRender time.Duration
	Ops        uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithOnTick registers a callback invoked on the scheduler goroutine after
// every completed tick.
func WithOnTick(fn func(TickInfo)) Option {
	return func(s *Scheduler) { s.onTick = fn }
}

// Scheduler is the single render consumer. Run must be called at most once.
type Scheduler struct {
	reg      *registry.Registry
	barrier  *rendezvous.Barrier
	cfg      *Config
	renderer Renderer
	clock    Clock
	log      *slog.Logger
	onTick   func(TickInfo)

	running atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// New creates a Scheduler that renders frames drained from reg and releases
// ticks on barrier.
func New(reg *registry.Registry, barrier *rendezvous.Barrier, cfg *Config, renderer Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:      reg,
		barrier:  barrier,
		cfg:      cfg,
		renderer: renderer,
		clock:    SystemClock{},
		log:      slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Stats returns a copy of the loop counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Run executes the tick loop until ctx is done or the renderer fails. On
// return the barrier is terminated, so no waiter is left blocked. A cancelled
// context yields ctx.Err(); a renderer failure yields a *RenderError.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.log.Info("scheduler started", "max_tick_rate", s.cfg.MaxTickRate())

	var last time.Time
	for {
		if err := ctx.Err(); err != nil {
			return s.stop(err)
		}

		if !last.IsZero() {
			wait := s.cfg.MinInterval() - s.clock.Now().Sub(last)
			if wait > 0 {
				if err := s.clock.Sleep(ctx, wait); err != nil {
					return s.stop(err)
				}
				s.recordSleep(wait)
				// Re-check: the interval may have changed while asleep.
				continue
			}
		}

		start := s.clock.Now()
		if err := s.tick(ctx, start); err != nil {
			if ctx.Err() != nil {
				return s.stop(ctx.Err())
			}
			s.barrier.Terminate(err)
			s.log.Error("scheduler terminated", "error", err)
			return err
		}
		last = start
	}
}

func (s *Scheduler) tick(ctx context.Context, start time.Time) error {
	frame := s.reg.Drain()

	if err := s.renderer.Render(ctx, frame); err != nil {
		return &RenderError{Tick: frame.Generation, Err: err}
	}

	s.barrier.Release(frame.Generation)

	ops := 0
	for _, a := range frame.Agents {
		ops += len(a.Ops)
	}
	info := TickInfo{
		Tick:   frame.Generation,
		Start:  start,
		Render: s.clock.Now().Sub(start),
		Agents: len(frame.Agents),
		Ops:    ops,
	}

	s.mu.Lock()
	s.stats.Ticks++
	s.stats.LastStart = start
	s.stats.LastRender = info.Render
	s.stats.Ops += uint64(ops)
	s.mu.Unlock()

	s.log.Debug("tick", "tick", info.Tick, "agents", info.Agents, "ops", info.Ops, "render", info.Render)

	if s.onTick != nil {
		s.onTick(info)
	}

	return nil
}

func (s *Scheduler) recordSleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Sleeps++
	s.stats.Slept += d
}

func (s *Scheduler) stop(cause error) error {
	s.barrier.Terminate(fmt.Errorf("%w: %w", ErrStopped, cause))
	s.log.Info("scheduler stopped", "ticks", s.Stats().Ticks)
	return cause
}
