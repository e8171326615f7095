// Package geom holds the small value types shared by the registry, the trail
// log and the renderers: points, sizes, colors and heading arithmetic.
package geom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tau is one full turn in radians.
const Tau = 2 * math.Pi

// ErrNotFinite is returned when a coordinate or dimension is NaN or infinite.
var ErrNotFinite = errors.New("geom: value is not finite")

// Point is a position on the drawing plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Finite reports whether both coordinates are finite.
func (p Point) Finite() bool {
	return finite(p.X) && finite(p.Y)
}

// Size is the visual extent of an agent.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Finite reports whether both dimensions are finite.
func (s Size) Finite() bool {
	return finite(s.W) && finite(s.H)
}

// Color is an RGBA color with every channel in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Common colors.
var (
	White = Color{R: 1, G: 1, B: 1, A: 1}
	Black = Color{A: 1}
)

// RGBA builds a Color, clamping every channel into [0, 1]. NaN becomes 0.
func RGBA(r, g, b, a float64) Color {
	return Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: clamp01(a)}
}

// Hex returns the color as a "#rrggbb" string, ignoring alpha.
func (c Color) Hex() string {
	const digits = "0123456789abcdef"
	buf := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []float64{c.R, c.G, c.B} {
		b := byte(math.Round(clamp01(v) * 255))
		buf[1+i*2] = digits[b>>4]
		buf[2+i*2] = digits[b&0x0f]
	}
	return string(buf)
}

// ParseHex parses "#rrggbb" or "#rrggbbaa" (the leading '#' is optional).
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("geom: invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("geom: invalid hex color %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}

	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// NormalizeAngle maps any angle in radians into [0, 2π). Negative operands are
// handled by taking the modulo twice.
func NormalizeAngle(rad float64) float64 {
	n := math.Mod(math.Mod(rad, Tau)+Tau, Tau)
	// Mod can round up to exactly Tau for tiny negative inputs.
	if n >= Tau {
		return 0
	}
	return n
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Forward returns the point reached by moving distance units from p along
// heading (radians).
func Forward(p Point, heading, distance float64) Point {
	return Point{
		X: p.X + distance*math.Cos(heading),
		Y: p.Y + distance*math.Sin(heading),
	}
}

// AngleEqual reports whether two angles are the same direction within eps.
func AngleEqual(a, b, eps float64) bool {
	d := NormalizeAngle(a - b)
	return d <= eps || Tau-d <= eps
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
