package trail_test

import (
	"testing"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/trail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marker builds an op whose To.X identifies it.
func marker(i int) trail.Op {
	return trail.Segment(geom.Point{}, geom.Point{X: float64(i)}, geom.White)
}

func markers(ops []trail.Op) []float64 {
	out := make([]float64, len(ops))
	for i, op := range ops {
		out[i] = op.To.X
	}
	return out
}

func TestLog_PushWithinBound(t *testing.T) {
	l := trail.NewLog(4)
	for i := range 3 {
		l.Push(marker(i))
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []float64{0, 1, 2}, markers(l.Ops()))
	assert.Zero(t, l.Dropped())
}

func TestLog_PushBeyondBoundDropsOldest(t *testing.T) {
	l := trail.NewLog(3)
	for i := range 10 {
		l.Push(marker(i))
	}

	// Newest maxDepth-1 plus the one just pushed.
	require.Equal(t, 3, l.Len())
	assert.Equal(t, []float64{7, 8, 9}, markers(l.Ops()))
	assert.Equal(t, uint64(7), l.Dropped())
}

func TestLog_DrainFIFOAndEmpties(t *testing.T) {
	l := trail.NewLog(8)
	for i := range 5 {
		l.Push(marker(i))
	}

	var seen []float64
	l.DrainTo(func(op trail.Op) { seen = append(seen, op.To.X) })

	assert.Equal(t, []float64{0, 1, 2, 3, 4}, seen)
	assert.Zero(t, l.Len())
	assert.Nil(t, l.Drain())
}

func TestLog_SeqIsMonotonic(t *testing.T) {
	l := trail.NewLog(2)
	for i := range 5 {
		l.Push(marker(i))
	}

	ops := l.Drain()
	require.Len(t, ops, 2)
	assert.Equal(t, uint64(3), ops[0].Seq)
	assert.Equal(t, uint64(4), ops[1].Seq)
}

func TestLog_ShrinkIsNotRetroactive(t *testing.T) {
	l := trail.NewLog(10)
	for i := range 6 {
		l.Push(marker(i))
	}

	l.SetMaxDepth(2)
	assert.Equal(t, 6, l.Len(), "shrinking must not evict until the next push")

	l.Push(marker(6))
	assert.Equal(t, []float64{5, 6}, markers(l.Ops()))
}

func TestLog_ZeroDepthBuffersNothing(t *testing.T) {
	l := trail.NewLog(0)
	l.Push(marker(1))
	l.Push(marker(2))

	assert.Zero(t, l.Len())
	assert.Equal(t, uint64(2), l.Dropped())
}

func TestLog_NegativeDepth(t *testing.T) {
	l := trail.NewLog(-3)
	assert.Equal(t, 0, l.MaxDepth())

	l.SetMaxDepth(-1)
	assert.Equal(t, 0, l.MaxDepth())
}

func TestLog_CloneIsIndependent(t *testing.T) {
	l := trail.NewLog(4)
	l.Push(marker(1))

	c := l.Clone()
	l.Push(marker(2))
	c.Drain()

	assert.Equal(t, 2, l.Len())
	assert.Zero(t, c.Len())
	assert.Equal(t, 4, c.MaxDepth())
}

func TestStamp(t *testing.T) {
	op := trail.Stamp(geom.Point{X: 3, Y: 4}, 1.5, geom.Black)
	assert.Equal(t, trail.KindStamp, op.Kind)
	assert.Equal(t, op.From, op.To)
	assert.InDelta(t, 1.5, op.Heading, 1e-12)
}
