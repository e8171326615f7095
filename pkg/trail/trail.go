// Package trail holds the replayable record of what an agent left behind on
// the canvas. Mutations capture an Op with the values from before and after
// the change; the scheduler drains and replays them in FIFO order.
package trail

import "github.com/germanamz/turtles/pkg/geom"

// Kind identifies what an Op draws.
type Kind string

const (
	// KindSegment draws a line from From to To.
	KindSegment Kind = "segment"
	// KindStamp leaves a print of the agent shape at To.
	KindStamp Kind = "stamp"
)

// Op is an immutable, captured draw operation. Seq is assigned by the Log on
// push and increases by one for every op the log has ever accepted.
type Op struct {
	Kind    Kind       `json:"kind"`
	From    geom.Point `json:"from"`
	To      geom.Point `json:"to"`
	Color   geom.Color `json:"color"`
	Heading float64    `json:"heading,omitempty"`
	Seq     uint64     `json:"seq"`
}

// Segment builds a line op.
func Segment(from, to geom.Point, c geom.Color) Op {
	return Op{Kind: KindSegment, From: from, To: to, Color: c}
}

// Stamp builds a marker op at p facing heading.
func Stamp(p geom.Point, heading float64, c geom.Color) Op {
	return Op{Kind: KindStamp, From: p, To: p, Color: c, Heading: heading}
}
