package main

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/turtles/pkg/session"
)

// frameSink receives canvas frames on the scheduler goroutine. It keeps only
// the newest frame and never blocks, so a busy terminal cannot slow ticks
// down.
type frameSink struct {
	latest atomic.Pointer[string]
	notify chan struct{}
}

func newFrameSink() *frameSink {
	return &frameSink{notify: make(chan struct{}, 1)}
}

// Push stores frame and wakes the bridge if it is idle.
func (f *frameSink) Push(frame string) {
	f.latest.Store(&frame)
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Latest returns the newest frame, or "" before the first tick.
func (f *frameSink) Latest() string {
	if p := f.latest.Load(); p != nil {
		return *p
	}
	return ""
}

// startBridge launches the frame forwarder and the event watcher. Both
// goroutines only call p.Send(); they never touch model state directly.
// The returned cancel function waits for both to exit.
func startBridge(ctx context.Context, p *tea.Program, frames *frameSink, events *session.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64,
		session.EventTick,
		session.EventAgentCreated,
		session.EventTickRateChanged,
		session.EventSchedulerStopped,
	)

	wg.Go(func() {
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case <-frames.notify:
				p.Send(frameMsg(frames.Latest()))
			}
		}
	})

	wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if msg := eventMsg(ev); msg != nil {
					p.Send(msg)
				}
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

// eventMsg converts a session event to a bubbletea message, or nil if the
// viewer does not care about it.
func eventMsg(ev session.Event) tea.Msg {
	switch ev.Kind {
	case session.EventTick:
		return tickMsg(ev.Tick)
	case session.EventAgentCreated:
		return agentCreatedMsg{}
	case session.EventTickRateChanged:
		return rateChangedMsg(ev.Rate)
	case session.EventSchedulerStopped:
		return schedulerStoppedMsg{err: ev.Err}
	}
	return nil
}
