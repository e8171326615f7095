// Package registry owns the canonical, ordered collection of agent records.
//
// Access uses two levels of locking: a coarse mutex serializes every Create
// and Mutate call, and a read/write lock guards the collection itself so the
// scheduler can take a cheap shared snapshot while mutators hold the write
// lock only for the duration of their single-record change.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/trail"
)

// ErrUnknownHandle is returned when a handle was not issued by this registry.
var ErrUnknownHandle = errors.New("registry: unknown handle")

// Handle identifies an agent. Handles are dense, assigned in creation order
// and never reused.
type Handle int

// Record is the full state of one agent.
type Record struct {
	Handle         Handle     `json:"handle"`
	Position       geom.Point `json:"position"`
	Heading        float64    `json:"heading"`
	RotationOffset float64    `json:"rotation_offset"`
	Color          geom.Color `json:"color"`
	Size           geom.Size  `json:"size"`
	Trail          *trail.Log `json:"-"`
}

// clone returns a copy of r whose trail log is not shared.
func (r Record) clone() Record {
	if r.Trail != nil {
		r.Trail = r.Trail.Clone()
	}
	return r
}

// Defaults are the values given to newly created records.
type Defaults struct {
	Position       geom.Point
	Heading        float64
	RotationOffset float64
	Color          geom.Color
	Size           geom.Size
	HistoryDepth   int
}

// DefaultDefaults returns the stock record defaults: origin, heading 0,
// opaque white, 16x16, history depth trail.DefaultMaxDepth.
func DefaultDefaults() Defaults {
	return Defaults{
		Color:        geom.White,
		Size:         geom.Size{W: 16, H: 16},
		HistoryDepth: trail.DefaultMaxDepth,
	}
}

// AgentFrame is one agent as seen by a single tick: its state at drain time
// and the ops that were pending for it.
type AgentFrame struct {
	Record Record     `json:"record"`
	Ops    []trail.Op `json:"ops,omitempty"`
}

// Frame is a consistent point-in-time view of every agent handed to the
// renderer. Generation is the number of frames drained so far, this one
// included.
type Frame struct {
	Generation uint64       `json:"generation"`
	Agents     []AgentFrame `json:"agents"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu sync.Mutex // serializes Create and Mutate

	rw         sync.RWMutex // guards records and generation
	records    []Record
	generation uint64
	defaults   Defaults
}

// New creates an empty Registry using d for new records.
func New(d Defaults) *Registry {
	d.Heading = geom.NormalizeAngle(d.Heading)
	return &Registry{defaults: d}
}

// Create appends a record with the registry defaults and returns its handle
// together with the generation observed under the lock: the first frame that
// includes the new record is generation+1.
func (r *Registry) Create() (Handle, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rw.Lock()
	defer r.rw.Unlock()

	h := Handle(len(r.records))
	r.records = append(r.records, Record{
		Handle:         h,
		Position:       r.defaults.Position,
		Heading:        r.defaults.Heading,
		RotationOffset: r.defaults.RotationOffset,
		Color:          r.defaults.Color,
		Size:           r.defaults.Size,
		Trail:          trail.NewLog(r.defaults.HistoryDepth),
	})

	return h, r.generation
}

// Mutate applies f to a copy of the record for h while holding exclusive
// access, and stores the copy only if f succeeds. It returns the generation
// observed under the lock: the first frame that can include this change is
// generation+1. f must not retain the pointer; changes to the record's Handle
// or Trail pointer are ignored. The trail log is shared with the stored
// record, so f should validate before pushing to it.
func (r *Registry) Mutate(h Handle, f func(*Record) error) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rw.Lock()
	defer r.rw.Unlock()

	if h < 0 || int(h) >= len(r.records) {
		return r.generation, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	next := r.records[h]
	if err := f(&next); err != nil {
		return r.generation, err
	}
	next.Handle = h
	next.Trail = r.records[h].Trail
	r.records[h] = next

	return r.generation, nil
}

// Get returns a copy of the record for h.
func (r *Registry) Get(h Handle) (Record, error) {
	r.rw.RLock()
	defer r.rw.RUnlock()

	if h < 0 || int(h) >= len(r.records) {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	return r.records[h].clone(), nil
}

// Len returns the number of agents.
func (r *Registry) Len() int {
	r.rw.RLock()
	defer r.rw.RUnlock()

	return len(r.records)
}

// Generation returns the number of frames drained so far.
func (r *Registry) Generation() uint64 {
	r.rw.RLock()
	defer r.rw.RUnlock()

	return r.generation
}

// Snapshot returns copies of every record in handle order. The result shares
// nothing with the registry and can be used without holding any lock.
func (r *Registry) Snapshot() []Record {
	r.rw.RLock()
	defer r.rw.RUnlock()

	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}

	return out
}

// Drain takes a frame for the scheduler: it copies every record, removes all
// pending trail ops and advances the generation, atomically with respect to
// Mutate.
func (r *Registry) Drain() Frame {
	r.rw.Lock()
	defer r.rw.Unlock()

	r.generation++
	f := Frame{
		Generation: r.generation,
		Agents:     make([]AgentFrame, len(r.records)),
	}

	for i := range r.records {
		ops := r.records[i].Trail.Drain()
		rec := r.records[i].clone()
		f.Agents[i] = AgentFrame{Record: rec, Ops: ops}
	}

	return f
}
