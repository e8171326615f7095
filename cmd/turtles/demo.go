package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/turtles/pkg/rendezvous"
	"github.com/germanamz/turtles/pkg/session"
)

// pattern drives one agent forever, one mutation per step.
type pattern func(ctx context.Context, a *session.Agent, step int) error

// palette cycles through agent colors as RGBA channels.
var palette = [][4]float64{
	{0.40, 0.80, 1.00, 1}, // sky
	{1.00, 0.55, 0.25, 1}, // orange
	{0.55, 0.95, 0.45, 1}, // green
	{0.95, 0.45, 0.80, 1}, // pink
	{1.00, 0.90, 0.35, 1}, // yellow
	{0.70, 0.60, 1.00, 1}, // violet
}

// patterns are assigned round-robin by worker index.
var patterns = []struct {
	name string
	fn   func(worker int) pattern
}{
	{"diagonal", diagonal},
	{"polygon", polygon},
	{"spiral", spiral},
}

// diagonal walks the agent through nine points along a diagonal and jumps
// back to the start.
func diagonal(worker int) pattern {
	sign := float64(1 - 2*(worker%2))
	return func(ctx context.Context, a *session.Agent, step int) error {
		i := float64(step%9 + 1)
		return a.SetPosition(ctx, sign*20*i, 20*i)
	}
}

// polygon traces a regular polygon with worker+3 sides.
func polygon(worker int) pattern {
	sides := worker%6 + 3
	return func(ctx context.Context, a *session.Agent, step int) error {
		if step%2 == 0 {
			return a.Forward(ctx, 60)
		}
		return a.Right(ctx, 360/float64(sides))
	}
}

// spiral grows outwards and starts over from the origin.
func spiral(int) pattern {
	return func(ctx context.Context, a *session.Agent, step int) error {
		n := step % 120
		if n == 0 {
			return a.SetPosition(ctx, 0, 0)
		}
		if n%2 == 1 {
			return a.Forward(ctx, float64(n)*1.5)
		}
		return a.Left(ctx, 25)
	}
}

// runWorkers starts n demo agents and blocks until all of them stop. Workers
// stop when ctx is done or the scheduler terminates, neither of which is
// reported as an error.
func runWorkers(ctx context.Context, s *session.Session, n int, log *slog.Logger) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for i := range n {
		wg.Go(func() {
			if err := runWorker(ctx, s, i, log); err != nil && !stopped(ctx, err) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	return errors.Join(errs...)
}

func runWorker(ctx context.Context, s *session.Session, worker int, log *slog.Logger) error {
	a, err := s.NewAgent(ctx)
	if err != nil {
		return err
	}

	c := palette[worker%len(palette)]
	if err := a.SetColor(ctx, c[0], c[1], c[2], c[3]); err != nil {
		return err
	}

	p := patterns[worker%len(patterns)]
	log = log.With("worker", worker, "agent", int(a.Handle()), "pattern", p.name)
	log.Info("worker started")

	next := p.fn(worker)
	for step := 0; ; step++ {
		if err := next(ctx, a, step); err != nil {
			log.Info("worker stopped", "steps", step, "error", err)
			return err
		}
		if step%30 == 29 {
			log.Debug("worker progress", "steps", step+1, "tick", s.Tick())
		}
	}
}

func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, rendezvous.ErrTerminated)
}
