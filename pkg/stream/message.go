package stream

import (
	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/trail"
)

// AgentState is one agent inside a FrameMessage.
type AgentState struct {
	Handle   int        `json:"handle"`
	Position geom.Point `json:"position"`
	Heading  float64    `json:"heading"`
	Color    string     `json:"color"`
	Size     geom.Size  `json:"size"`
	Ops      []trail.Op `json:"ops,omitempty"`
}

// FrameMessage is the JSON document sent to clients once per tick.
type FrameMessage struct {
	Generation uint64       `json:"generation"`
	Agents     []AgentState `json:"agents"`
}

// NewFrameMessage converts a drained frame to its wire form. The reported
// heading includes the agent's rotation offset.
func NewFrameMessage(f registry.Frame) FrameMessage {
	msg := FrameMessage{
		Generation: f.Generation,
		Agents:     make([]AgentState, len(f.Agents)),
	}

	for i, a := range f.Agents {
		msg.Agents[i] = AgentState{
			Handle:   int(a.Record.Handle),
			Position: a.Record.Position,
			Heading:  geom.NormalizeAngle(a.Record.Heading + a.Record.RotationOffset),
			Color:    a.Record.Color.Hex(),
			Size:     a.Record.Size,
			Ops:      a.Ops,
		}
	}

	return msg
}
