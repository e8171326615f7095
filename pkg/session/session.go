package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/rendezvous"
	"github.com/germanamz/turtles/pkg/scheduler"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	clock  scheduler.Clock
	logger *slog.Logger
}

// WithClock replaces the scheduler's system clock.
func WithClock(c scheduler.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger used by the session and its scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Session ties together the registry, barrier, tick config and scheduler.
type Session struct {
	id      string
	cfg     Config
	ctx     context.Context
	reg     *registry.Registry
	barrier *rendezvous.Barrier
	rate    *scheduler.Config
	sched   *scheduler.Scheduler
	events  *EventBus
	log     *slog.Logger

	startOnce sync.Once
	exited    chan struct{}
	runErr    error
}

// New creates a Session that renders with renderer. The scheduler is bound to
// ctx: cancelling it stops the scheduler and fails every pending and future
// mutation with rendezvous.ErrTerminated. Nothing runs until the first agent
// is created.
func New(ctx context.Context, cfg Config, renderer scheduler.Renderer, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		ctx:     ctx,
		reg:     registry.New(cfg.RecordDefaults()),
		barrier: rendezvous.New(),
		rate:    scheduler.DefaultConfig(),
		events:  NewEventBus(),
		exited:  make(chan struct{}),
	}
	s.log = o.logger.With("session", s.id)

	if err := s.rate.SetMaxTickRate(cfg.TickRate()); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(s.log.With("component", "scheduler")),
		scheduler.WithOnTick(s.publishTick),
	}
	if o.clock != nil {
		schedOpts = append(schedOpts, scheduler.WithClock(o.clock))
	}
	s.sched = scheduler.New(s.reg, s.barrier, s.rate, renderer, schedOpts...)

	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Config returns the configuration the session was created with.
func (s *Session) Config() Config { return s.cfg }

// Events returns the session's event bus.
func (s *Session) Events() *EventBus { return s.events }

// start launches the scheduler goroutine once.
func (s *Session) start() {
	s.startOnce.Do(func() {
		go func() {
			err := s.sched.Run(s.ctx)
			s.runErr = err
			s.events.Publish(Event{
				Kind:      EventSchedulerStopped,
				SessionID: s.id,
				Timestamp: time.Now(),
				Err:       err,
			})
			close(s.exited)
		}()
	})
}

func (s *Session) publishTick(info scheduler.TickInfo) {
	s.events.Publish(Event{
		Kind:      EventTick,
		SessionID: s.id,
		Timestamp: info.Start,
		Tick:      info,
	})
}

// NewAgent creates an agent with the configured defaults, starting the
// scheduler if needed. It returns once a tick showing the new agent has been
// rendered.
func (s *Session) NewAgent(ctx context.Context) (*Agent, error) {
	if err := s.barrier.Err(); err != nil {
		return nil, err
	}
	s.start()

	h, gen := s.reg.Create()

	s.log.Info("agent created", "agent", int(h))
	s.events.Publish(Event{
		Kind:      EventAgentCreated,
		SessionID: s.id,
		Agent:     h,
		Timestamp: time.Now(),
	})

	if _, err := s.barrier.Wait(ctx, gen+1); err != nil {
		return nil, err
	}

	return &Agent{s: s, h: h}, nil
}

// Agent returns the handle for an existing agent.
func (s *Session) Agent(h registry.Handle) (*Agent, error) {
	if _, err := s.reg.Get(h); err != nil {
		return nil, err
	}
	return &Agent{s: s, h: h}, nil
}

// Len returns the number of agents created so far.
func (s *Session) Len() int { return s.reg.Len() }

// Snapshot returns a copy of every agent record.
func (s *Session) Snapshot() []registry.Record { return s.reg.Snapshot() }

// SetMaxTickRate limits the scheduler to fps ticks per second, effective from
// the next tick. +Inf removes the limit.
func (s *Session) SetMaxTickRate(fps float64) error {
	if err := s.rate.SetMaxTickRate(fps); err != nil {
		return err
	}

	s.log.Info("tick rate changed", "max_tick_rate", fps)
	s.events.Publish(Event{
		Kind:      EventTickRateChanged,
		SessionID: s.id,
		Timestamp: time.Now(),
		Rate:      fps,
	})

	return nil
}

// MaxTickRate returns the current tick rate limit.
func (s *Session) MaxTickRate() float64 { return s.rate.MaxTickRate() }

// Tick returns the number of completed ticks.
func (s *Session) Tick() uint64 { return s.barrier.Completed() }

// Stats returns the scheduler's counters.
func (s *Session) Stats() scheduler.Stats { return s.sched.Stats() }

// Err returns nil while the scheduler can still complete ticks, or the
// termination error.
func (s *Session) Err() error { return s.barrier.Err() }

// Done is closed once the scheduler has terminated.
func (s *Session) Done() <-chan struct{} { return s.barrier.Done() }

// Wait starts the scheduler if it is not running yet and blocks until it
// exits, returning its error.
func (s *Session) Wait() error {
	s.start()
	<-s.exited
	return s.runErr
}
