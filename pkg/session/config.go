package session

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/registry"
	"github.com/germanamz/turtles/pkg/scheduler"
	"github.com/germanamz/turtles/pkg/trail"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config is the top-level session configuration.
type Config struct {
	MaxTickRate  float64       `yaml:"max_tick_rate"` // Ticks per second (0 = default 60).
	HistoryDepth *int          `yaml:"history_depth"` // Trail ops buffered per agent (unset = 64).
	Defaults     AgentDefaults `yaml:"defaults"`
	Canvas       CanvasConfig  `yaml:"canvas"`
	Workers      int           `yaml:"workers"` // Demo workers started by the CLI.
	Stream       StreamConfig  `yaml:"stream"`
	Log          LogConfig     `yaml:"log"`
}

// AgentDefaults are the initial values of a new agent.
type AgentDefaults struct {
	X              float64 `yaml:"x"`
	Y              float64 `yaml:"y"`
	Heading        float64 `yaml:"heading"`         // Degrees.
	RotationOffset float64 `yaml:"rotation_offset"` // Degrees, constant visual bias.
	Color          string  `yaml:"color"`           // "#rrggbb" or "#rrggbbaa" (empty = white).
	Width          float64 `yaml:"width"`           // 0 = 16.
	Height         float64 `yaml:"height"`          // 0 = 16.
}

// CanvasConfig sizes the terminal canvas. Zero values mean "fit the terminal".
type CanvasConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Scale      float64 `yaml:"scale"` // World units per cell (0 = 8).
	Background string  `yaml:"background"`
}

// StreamConfig controls the websocket frame stream.
type StreamConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080" (empty = disabled).
}

// LogConfig controls the CLI log output.
type LogConfig struct {
	File  string `yaml:"file"`  // Empty = discard.
	Level string `yaml:"level"` // debug, info, warn, error (empty = info).
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("session: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data after expanding environment
// variables.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("session: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if math.IsNaN(c.MaxTickRate) || c.MaxTickRate < 0 {
		return fmt.Errorf("%w: max_tick_rate must not be negative", ErrInvalidConfig)
	}
	if c.HistoryDepth != nil && *c.HistoryDepth < 0 {
		return fmt.Errorf("%w: history_depth must not be negative", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.Canvas.Width < 0 || c.Canvas.Height < 0 {
		return fmt.Errorf("%w: canvas size must not be negative", ErrInvalidConfig)
	}
	if c.Canvas.Scale < 0 {
		return fmt.Errorf("%w: canvas scale must not be negative", ErrInvalidConfig)
	}

	d := c.Defaults
	if !(geom.Point{X: d.X, Y: d.Y}).Finite() || !(geom.Size{W: d.Width, H: d.Height}).Finite() ||
		math.IsNaN(d.Heading) || math.IsInf(d.Heading, 0) ||
		math.IsNaN(d.RotationOffset) || math.IsInf(d.RotationOffset, 0) {
		return fmt.Errorf("%w: defaults must be finite", ErrInvalidConfig)
	}
	if d.Width < 0 || d.Height < 0 {
		return fmt.Errorf("%w: default size must not be negative", ErrInvalidConfig)
	}
	if d.Color != "" {
		if _, err := geom.ParseHex(d.Color); err != nil {
			return fmt.Errorf("%w: defaults.color: %w", ErrInvalidConfig, err)
		}
	}
	if c.Canvas.Background != "" {
		if _, err := geom.ParseHex(c.Canvas.Background); err != nil {
			return fmt.Errorf("%w: canvas.background: %w", ErrInvalidConfig, err)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}

	return nil
}

// TickRate returns the configured tick rate, or the scheduler default.
func (c Config) TickRate() float64 {
	if c.MaxTickRate == 0 {
		return scheduler.DefaultTickRate
	}
	return c.MaxTickRate
}

// RecordDefaults converts the agent defaults to registry defaults. It assumes
// Validate has passed.
func (c Config) RecordDefaults() registry.Defaults {
	d := registry.DefaultDefaults()

	d.Position = geom.Point{X: c.Defaults.X, Y: c.Defaults.Y}
	d.Heading = geom.Radians(c.Defaults.Heading)
	d.RotationOffset = geom.Radians(c.Defaults.RotationOffset)

	if c.Defaults.Color != "" {
		if col, err := geom.ParseHex(c.Defaults.Color); err == nil {
			d.Color = col
		}
	}
	if c.Defaults.Width > 0 {
		d.Size.W = c.Defaults.Width
	}
	if c.Defaults.Height > 0 {
		d.Size.H = c.Defaults.Height
	}

	d.HistoryDepth = trail.DefaultMaxDepth
	if c.HistoryDepth != nil {
		d.HistoryDepth = *c.HistoryDepth
	}

	return d
}
