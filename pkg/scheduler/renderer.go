package scheduler

import (
	"context"

	"github.com/germanamz/turtles/pkg/registry"
)

// Renderer turns a frame into something visible. It is called exactly once
// per tick, always from the scheduler goroutine, never concurrently with
// itself. A returned error is fatal to the scheduler.
type Renderer interface {
	Render(ctx context.Context, f registry.Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, f registry.Frame) error

// Render implements Renderer.
func (fn RendererFunc) Render(ctx context.Context, f registry.Frame) error {
	return fn(ctx, f)
}

// Multi renders every frame with each renderer in order. The first error
// stops the chain and is returned.
func Multi(renderers ...Renderer) Renderer {
	return RendererFunc(func(ctx context.Context, f registry.Frame) error {
		for _, r := range renderers {
			if err := r.Render(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// Discard is a Renderer that does nothing.
var Discard Renderer = RendererFunc(func(context.Context, registry.Frame) error { return nil })
