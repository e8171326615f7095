package session

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/trail"
)

// ErrInvalidArgument is returned for negative sizes and history depths.
var ErrInvalidArgument = errors.New("session: invalid argument")

// Agent is a handle to one agent in a Session. It is cheap to copy and valid
// for the life of the session.
//
// Every mutating method blocks until the scheduler has rendered a tick that
// observed the change. Calls on the same agent from different goroutines are
// applied in lock-arrival order; callers that need a specific order must
// serialize themselves.
type Agent struct {
	s *Session
	h registry.Handle
}

// Handle returns the agent's registry handle.
func (a *Agent) Handle() registry.Handle { return a.h }

// State returns a copy of the agent's current record without waiting for a
// tick.
func (a *Agent) State() (registry.Record, error) {
	return a.s.reg.Get(a.h)
}

// apply mutates the agent and waits for the first tick drained after the
// mutation.
func (a *Agent) apply(ctx context.Context, f func(*registry.Record) error) error {
	if err := a.s.barrier.Err(); err != nil {
		return err
	}

	gen, err := a.s.reg.Mutate(a.h, f)
	if err != nil {
		return err
	}

	_, err = a.s.barrier.Wait(ctx, gen+1)
	return err
}

// SetPosition moves the agent to (x, y), leaving a segment from the old
// position in the current color.
func (a *Agent) SetPosition(ctx context.Context, x, y float64) error {
	to := geom.Point{X: x, Y: y}
	if !to.Finite() {
		return fmt.Errorf("session: set position: %w", geom.ErrNotFinite)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		from := rec.Position
		rec.Position = to
		rec.Trail.Push(trail.Segment(from, to, rec.Color))
		return nil
	})
}

// Forward moves the agent distance units along its heading.
func (a *Agent) Forward(ctx context.Context, distance float64) error {
	if !finite(distance) {
		return fmt.Errorf("session: forward: %w", geom.ErrNotFinite)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		to := geom.Forward(rec.Position, rec.Heading, distance)
		if !to.Finite() {
			return fmt.Errorf("session: forward: %w", geom.ErrNotFinite)
		}
		from := rec.Position
		rec.Position = to
		rec.Trail.Push(trail.Segment(from, to, rec.Color))
		return nil
	})
}

// Backward moves the agent distance units against its heading.
func (a *Agent) Backward(ctx context.Context, distance float64) error {
	return a.Forward(ctx, -distance)
}

// Left turns the agent by degrees, subtracting from the heading.
func (a *Agent) Left(ctx context.Context, degrees float64) error {
	return a.turn(ctx, -degrees)
}

// Right turns the agent by degrees, adding to the heading.
func (a *Agent) Right(ctx context.Context, degrees float64) error {
	return a.turn(ctx, degrees)
}

func (a *Agent) turn(ctx context.Context, degrees float64) error {
	if !finite(degrees) {
		return fmt.Errorf("session: turn: %w", geom.ErrNotFinite)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Heading = geom.NormalizeAngle(rec.Heading + geom.Radians(degrees))
		return nil
	})
}

// SetHeading points the agent at an absolute angle in degrees.
func (a *Agent) SetHeading(ctx context.Context, degrees float64) error {
	if !finite(degrees) {
		return fmt.Errorf("session: set heading: %w", geom.ErrNotFinite)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Heading = geom.NormalizeAngle(geom.Radians(degrees))
		return nil
	})
}

// SetColor changes the agent color. Channels are clamped to [0, 1].
func (a *Agent) SetColor(ctx context.Context, r, g, b, alpha float64) error {
	c := geom.RGBA(r, g, b, alpha)
	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Color = c
		return nil
	})
}

// SetSize changes the agent's visual size.
func (a *Agent) SetSize(ctx context.Context, w, h float64) error {
	size := geom.Size{W: w, H: h}
	if !size.Finite() {
		return fmt.Errorf("session: set size: %w", geom.ErrNotFinite)
	}
	if w < 0 || h < 0 {
		return fmt.Errorf("%w: size %gx%g", ErrInvalidArgument, w, h)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Size = size
		return nil
	})
}

// Stamp leaves a print of the agent at its current position.
func (a *Agent) Stamp(ctx context.Context) error {
	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Trail.Push(trail.Stamp(rec.Position, rec.Heading+rec.RotationOffset, rec.Color))
		return nil
	})
}

// SetHistoryDepth bounds how many trail ops the agent buffers between ticks.
// The new bound applies from the next push; ops already buffered are kept.
func (a *Agent) SetHistoryDepth(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: history depth %d", ErrInvalidArgument, n)
	}

	return a.apply(ctx, func(rec *registry.Record) error {
		rec.Trail.SetMaxDepth(n)
		return nil
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
