package session

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/scheduler"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventAgentCreated     EventKind = "agent_created"
	EventTick             EventKind = "tick"
	EventTickRateChanged  EventKind = "tick_rate_changed"
	EventSchedulerStopped EventKind = "scheduler_stopped"
)

// Event is an immutable notification of session activity. Only the payload
// field matching Kind is set: Agent for EventAgentCreated, Tick for EventTick,
// Rate for EventTickRateChanged and Err for EventSchedulerStopped.
type Event struct {
	Kind      EventKind
	SessionID string
	Timestamp time.Time

	Agent registry.Handle
	Tick  scheduler.TickInfo
	Rate  float64
	Err   error
}

// Subscription receives events from an EventBus.
type Subscription struct {
	C       <-chan Event
	ch      chan Event
	kinds   []EventKind // empty = all
	dropped atomic.Uint64
}

// Dropped returns how many events this subscriber missed because its buffer
// was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) wants(k EventKind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, k)
}

// EventBus fans out events to all active subscribers. It is safe for
// concurrent use. Publish is called from the scheduler goroutine and never
// blocks.
type EventBus struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe creates a subscription with the given channel buffer size that
// receives only the listed kinds, or every kind when none are given. The
// caller should read from sub.C and eventually call Unsubscribe.
func (b *EventBus) Subscribe(bufSize int, kinds ...EventKind) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch, kinds: kinds}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// twice is a no-op.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.Index(b.subs, sub)
	if i < 0 {
		return
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	close(sub.ch)
}

// Publish offers e to every subscriber interested in its kind. A subscriber
// whose buffer is full misses the event and its drop counter grows.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.wants(e.Kind) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}
