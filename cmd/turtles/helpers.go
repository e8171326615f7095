package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/germanamz/turtles/pkg/session"
)

const (
	fallbackWidth  = 80
	fallbackHeight = 24
)

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig reads the config at path. A missing file at the default path
// yields the zero config; a missing explicit path is an error.
func loadConfig(path string, explicit bool) (session.Config, error) {
	cfg, err := session.LoadConfig(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return session.Config{}, nil
	}
	return cfg, err
}

// newLogger opens the configured log file. The terminal belongs to the
// viewer, so without a file logs are discarded.
func newLogger(cfg session.LogConfig) (*slog.Logger, func() error, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.File == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
}

// canvasSize resolves the canvas dimensions: configured values win, anything
// left at zero fits the terminal, leaving one row for the status bar.
func canvasSize(cfg session.CanvasConfig) (width, height int, fit bool) {
	width, height = cfg.Width, cfg.Height
	if width > 0 && height > 0 {
		return width, height, false
	}

	tw, th, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
	if err != nil {
		tw, th = fallbackWidth, fallbackHeight
	}

	if width <= 0 {
		width = tw
	}
	if height <= 0 {
		height = max(th-1, 1)
	}

	return width, height, cfg.Width <= 0 && cfg.Height <= 0
}

// isTerminal reports whether stdout is attached to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}
