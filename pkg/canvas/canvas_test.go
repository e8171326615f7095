package canvas

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentAt(h int, p geom.Point, heading float64, ops ...trail.Op) registry.AgentFrame {
	return registry.AgentFrame{
		Record: registry.Record{
			Handle:   registry.Handle(h),
			Position: p,
			Heading:  heading,
			Color:    geom.White,
		},
		Ops: ops,
	}
}

func TestRender_AgentArrowAtOrigin(t *testing.T) {
	c := New(21, 11, WithScale(1))

	require.NoError(t, c.Render(context.Background(), registry.Frame{
		Generation: 1,
		Agents:     []registry.AgentFrame{agentAt(0, geom.Point{}, 0)},
	}))

	assert.Equal(t, '→', c.At(10, 5))
	x, y := c.CellOf(geom.Point{})
	assert.Equal(t, 10, x)
	assert.Equal(t, 5, y)
}

func TestArrow(t *testing.T) {
	tests := []struct {
		heading float64
		want    rune
	}{
		{0, '→'},
		{math.Pi / 2, '↓'},
		{math.Pi, '←'},
		{3 * math.Pi / 2, '↑'},
		{geom.Tau - 0.01, '→'},
		{-math.Pi / 4, '↗'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(arrow(tt.heading)), "heading %v", tt.heading)
	}
}

func TestRender_SegmentPersistsAcrossTicks(t *testing.T) {
	c := New(21, 11, WithScale(1))
	ctx := context.Background()

	seg := trail.Segment(geom.Point{}, geom.Point{X: 4}, geom.White)
	require.NoError(t, c.Render(ctx, registry.Frame{
		Generation: 1,
		Agents:     []registry.AgentFrame{agentAt(0, geom.Point{X: 4}, 0, seg)},
	}))

	// Second tick has no ops; the trail stays.
	require.NoError(t, c.Render(ctx, registry.Frame{
		Generation: 2,
		Agents:     []registry.AgentFrame{agentAt(0, geom.Point{X: 4}, 0)},
	}))

	for x := 10; x < 14; x++ {
		assert.Equal(t, string(trailRune), string(c.At(x, 5)), "cell %d", x)
	}
	assert.Equal(t, '→', c.At(14, 5))
	assert.Equal(t, emptyRune, c.At(15, 5))
}

func TestRender_Stamp(t *testing.T) {
	c := New(21, 11, WithScale(1))

	require.NoError(t, c.Render(context.Background(), registry.Frame{
		Generation: 1,
		Agents: []registry.AgentFrame{
			agentAt(0, geom.Point{X: 5}, 0, trail.Stamp(geom.Point{X: -3}, 0, geom.White)),
		},
	}))

	assert.Equal(t, stampRune, c.At(7, 5))
}

func TestRender_OffCanvasSegmentsAreClipped(t *testing.T) {
	c := New(10, 6, WithScale(1))

	far := trail.Segment(geom.Point{X: -1e12, Y: 0}, geom.Point{X: 1e12, Y: 0}, geom.White)
	outside := trail.Segment(geom.Point{X: 100, Y: 100}, geom.Point{X: 200, Y: 200}, geom.White)

	require.NoError(t, c.Render(context.Background(), registry.Frame{
		Generation: 1,
		Agents:     []registry.AgentFrame{agentAt(0, geom.Point{X: 1e15}, 0, far, outside)},
	}))

	row := strings.Split(c.Plain(), "\n")[3]
	assert.Equal(t, strings.Repeat(string(trailRune), 10), row)
}

func TestClear(t *testing.T) {
	c := New(5, 3, WithScale(1))
	seg := trail.Segment(geom.Point{X: -2}, geom.Point{X: 2}, geom.White)

	require.NoError(t, c.Render(context.Background(), registry.Frame{
		Agents: []registry.AgentFrame{{Ops: []trail.Op{seg}, Record: registry.Record{Position: geom.Point{X: 100}}}},
	}))
	assert.Contains(t, c.Plain(), string(trailRune))

	c.Clear()
	require.NoError(t, c.Render(context.Background(), registry.Frame{}))
	assert.NotContains(t, c.Plain(), string(trailRune))
}

func TestSinkAndStatus(t *testing.T) {
	var got []string
	c := New(30, 3, WithScale(1), WithStatusLine(), WithSink(func(s string) { got = append(got, s) }))

	require.NoError(t, c.Render(context.Background(), registry.Frame{
		Generation: 7,
		Agents:     []registry.AgentFrame{agentAt(0, geom.Point{}, 0)},
	}))

	require.Len(t, got, 1)
	assert.Equal(t, c.String(), got[0])
	assert.Contains(t, got[0], "tick 7")
	assert.Contains(t, got[0], "1 agents")
}

func TestStatusTruncated(t *testing.T) {
	c := New(8, 1, WithStatusLine())
	require.NoError(t, c.Render(context.Background(), registry.Frame{Generation: 123456}))

	lines := strings.Split(c.String(), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
}

func TestResize(t *testing.T) {
	c := New(4, 4)
	c.Resize(8, 2)
	w, h := c.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 2, h)

	c.Resize(0, -3)
	w, h = c.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestLine(t *testing.T) {
	var pts [][2]int
	line(0, 0, 3, 1, func(x, y int) { pts = append(pts, [2]int{x, y}) })

	require.Len(t, pts, 4)
	assert.Equal(t, [2]int{0, 0}, pts[0])
	assert.Equal(t, [2]int{3, 1}, pts[3])
}

func TestClip(t *testing.T) {
	x0, y0, x1, y1, ok := clip(-5, 2, 15, 2, 9, 4)
	require.True(t, ok)
	assert.InDelta(t, 0.0, x0, 1e-9)
	assert.InDelta(t, 9.0, x1, 1e-9)
	assert.InDelta(t, 2.0, y0, 1e-9)
	assert.InDelta(t, 2.0, y1, 1e-9)

	_, _, _, _, ok = clip(-5, -5, -1, -1, 9, 4)
	assert.False(t, ok)
}
