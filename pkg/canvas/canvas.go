// Package canvas is a terminal render target. It rasterizes trail ops onto a
// persistent character grid, draws every agent as a heading arrow on top and
// produces a lipgloss-styled string per tick.
package canvas

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/trail"
)

// DefaultScale is the number of world units per cell column.
const DefaultScale = 8

const (
	trailRune = '•'
	stampRune = '◆'
	emptyRune = ' '
)

// arrows are indexed by heading in eighths of a turn, with y growing down.
var arrows = []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

type cell struct {
	r     rune
	color geom.Color
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithScale sets the world units per cell column. Rows cover twice as many
// units, since terminal cells are roughly twice as tall as wide.
func WithScale(units float64) Option {
	return func(c *Canvas) {
		if units > 0 {
			c.scale = units
		}
	}
}

// WithBackground paints empty cells with bg.
func WithBackground(bg geom.Color) Option {
	return func(c *Canvas) { c.background = &bg }
}

// WithSink registers a function that receives every rendered frame.
func WithSink(fn func(string)) Option {
	return func(c *Canvas) { c.sink = fn }
}

// WithStatusLine appends a one-line tick summary under the grid.
func WithStatusLine() Option {
	return func(c *Canvas) { c.status = true }
}

// Canvas implements scheduler.Renderer. Render must not be called
// concurrently with itself; the read accessors are safe from any goroutine.
type Canvas struct {
	mu         sync.Mutex
	width      int
	height     int
	scale      float64
	background *geom.Color
	status     bool
	sink       func(string)

	trails   [][]cell // persistent layer fed by trail ops
	composed [][]cell // trails plus agents for the last frame
	frame    string
	tick     uint64
}

// New creates a width×height canvas.
func New(width, height int, opts ...Option) *Canvas {
	c := &Canvas{scale: DefaultScale}
	for _, o := range opts {
		o(c)
	}
	c.resize(max(width, 1), max(height, 1))
	return c
}

// Size returns the grid dimensions in cells.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Resize changes the grid dimensions. Existing trails are discarded.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resize(max(width, 1), max(height, 1))
}

// Clear erases all trails.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trails = newGrid(c.width, c.height)
}

func (c *Canvas) resize(width, height int) {
	c.width, c.height = width, height
	c.trails = newGrid(width, height)
	c.composed = newGrid(width, height)
}

func newGrid(width, height int) [][]cell {
	g := make([][]cell, height)
	for y := range g {
		g[y] = make([]cell, width)
		for x := range g[y] {
			g[y][x].r = emptyRune
		}
	}
	return g
}

// Render implements scheduler.Renderer.
func (c *Canvas) Render(_ context.Context, f registry.Frame) error {
	c.mu.Lock()

	for _, a := range f.Agents {
		for _, op := range a.Ops {
			c.apply(op)
		}
	}

	for y := range c.composed {
		copy(c.composed[y], c.trails[y])
	}
	for _, a := range f.Agents {
		rec := a.Record
		x, y := c.toCell(rec.Position)
		c.set(c.composed, x, y, cell{r: arrow(rec.Heading + rec.RotationOffset), color: rec.Color})
	}

	c.tick = f.Generation
	c.frame = c.draw(f)
	frame, sink := c.frame, c.sink
	c.mu.Unlock()

	if sink != nil {
		sink(frame)
	}
	return nil
}

// String returns the last rendered frame with styling.
func (c *Canvas) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Plain returns the last composed grid as unstyled text, one line per row.
func (c *Canvas) Plain() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	for y, row := range c.composed {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, cl := range row {
			sb.WriteRune(cl.r)
		}
	}
	return sb.String()
}

// At returns the rune drawn at cell (x, y) in the last frame.
func (c *Canvas) At(x, y int) rune {
	c.mu.Lock()
	defer c.mu.Unlock()

	if y < 0 || y >= c.height || x < 0 || x >= c.width {
		return emptyRune
	}
	return c.composed[y][x].r
}

// CellOf maps a world point to its cell. The origin is the grid center.
func (c *Canvas) CellOf(p geom.Point) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toCell(p)
}

func (c *Canvas) toCell(p geom.Point) (int, int) {
	fx, fy := c.toCellF(p)
	return clampInt(fx), clampInt(fy)
}

func (c *Canvas) toCellF(p geom.Point) (float64, float64) {
	return float64(c.width/2) + p.X/c.scale, float64(c.height/2) + p.Y/(2*c.scale)
}

// clampInt rounds v and keeps it well inside the int range so far-away
// agents cannot overflow the conversion.
func clampInt(v float64) int {
	const limit = 1 << 30
	return int(math.Round(math.Max(-limit, math.Min(limit, v))))
}

func (c *Canvas) apply(op trail.Op) {
	switch op.Kind {
	case trail.KindSegment:
		fx0, fy0 := c.toCellF(op.From)
		fx1, fy1 := c.toCellF(op.To)
		fx0, fy0, fx1, fy1, ok := clip(fx0, fy0, fx1, fy1, float64(c.width-1), float64(c.height-1))
		if !ok {
			return
		}
		line(clampInt(fx0), clampInt(fy0), clampInt(fx1), clampInt(fy1), func(x, y int) {
			c.set(c.trails, x, y, cell{r: trailRune, color: op.Color})
		})
	case trail.KindStamp:
		x, y := c.toCell(op.To)
		c.set(c.trails, x, y, cell{r: stampRune, color: op.Color})
	}
}

func (c *Canvas) set(g [][]cell, x, y int, cl cell) {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return
	}
	g[y][x] = cl
}

// draw renders the composed grid, grouping runs of equal color into a single
// styled span.
func (c *Canvas) draw(f registry.Frame) string {
	base := lipgloss.NewStyle()
	if c.background != nil {
		base = base.Background(lipgloss.Color(c.background.Hex()))
	}

	var sb strings.Builder
	for y, row := range c.composed {
		if y > 0 {
			sb.WriteByte('\n')
		}

		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && sameInk(row[x], row[start]) {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, cl := range row[start:x] {
				run = append(run, cl.r)
			}
			style := base
			if row[start].r != emptyRune {
				style = style.Foreground(lipgloss.Color(row[start].color.Hex()))
			}
			sb.WriteString(style.Render(string(run)))
			start = x
		}
	}

	if c.status {
		ops := 0
		for _, a := range f.Agents {
			ops += len(a.Ops)
		}
		line := fmt.Sprintf("tick %d · %d agents · %d ops", f.Generation, len(f.Agents), ops)
		sb.WriteByte('\n')
		sb.WriteString(runewidth.Truncate(line, c.width, "…"))
	}

	return sb.String()
}

func sameInk(a, b cell) bool {
	if a.r == emptyRune || b.r == emptyRune {
		return a.r == b.r
	}
	return a.color == b.color
}

// arrow picks the glyph closest to heading.
func arrow(heading float64) rune {
	i := int(math.Round(geom.NormalizeAngle(heading)/(geom.Tau/8))) % len(arrows)
	return arrows[i]
}

// clip trims the segment to the rectangle [0, maxX]×[0, maxY]
// (Liang-Barsky). ok is false when nothing of it is visible.
func clip(x0, y0, x1, y1, maxX, maxY float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, x0},
		{dx, maxX - x0},
		{-dy, y0},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}

	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// line walks the cells from (x0, y0) to (x1, y1) inclusive (Bresenham).
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
