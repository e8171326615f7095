package scheduler

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// DefaultTickRate is the tick rate a new Config starts with.
const DefaultTickRate = 60

// ErrInvalidRate is returned for tick rates that are zero, negative or NaN.
var ErrInvalidRate = errors.New("scheduler: tick rate must be positive")

// Config holds the minimum interval between tick starts. It may be changed at
// any time from any goroutine; the scheduler reads it once per loop iteration,
// so a change applies from the next tick on.
type Config struct {
	interval atomic.Int64 // nanoseconds; 0 = no limit
}

// NewConfig creates a Config with the given minimum interval. Negative values
// mean no limit.
func NewConfig(interval time.Duration) *Config {
	c := &Config{}
	c.SetMinInterval(interval)
	return c
}

// DefaultConfig creates a Config limited to DefaultTickRate ticks per second.
func DefaultConfig() *Config {
	return NewConfig(time.Second / DefaultTickRate)
}

// MinInterval returns the minimum time between two tick starts.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.interval.Load())
}

// SetMinInterval sets the minimum time between two tick starts.
func (c *Config) SetMinInterval(d time.Duration) {
	c.interval.Store(int64(max(d, 0)))
}

// SetMaxTickRate limits the scheduler to fps ticks per second. +Inf removes
// the limit. Rates too slow to express as a time.Duration are clamped to the
// longest interval.
func (c *Config) SetMaxTickRate(fps float64) error {
	if math.IsNaN(fps) || fps <= 0 {
		return ErrInvalidRate
	}
	if math.IsInf(fps, 1) {
		c.SetMinInterval(0)
		return nil
	}

	// Rates below about 1e-10 fps would overflow the interval.
	ns := float64(time.Second) / fps
	if ns >= math.MaxInt64 {
		c.SetMinInterval(time.Duration(math.MaxInt64))
		return nil
	}

	c.SetMinInterval(time.Duration(ns))
	return nil
}

// MaxTickRate returns the current limit in ticks per second, or +Inf when
// unlimited.
func (c *Config) MaxTickRate() float64 {
	d := c.MinInterval()
	if d <= 0 {
		return math.Inf(1)
	}
	return float64(time.Second) / float64(d)
}
