package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/turtles/pkg/session"
)

// wizardConfig holds the raw form answers. Numbers stay strings until
// buildConfig so the form can validate them field by field.
type wizardConfig struct {
	TickRate     string
	Workers      string
	HistoryDepth string
	Scale        string
	Color        string
	StreamAddr   string
	LogFile      string
}

func defaultWizardConfig() wizardConfig {
	return wizardConfig{
		TickRate:     "60",
		Workers:      "3",
		HistoryDepth: "64",
		Scale:        "8",
		Color:        "#ffffff",
		LogFile:      "turtles.log",
	}
}

func runWizard() ([]byte, error) {
	w := defaultWizardConfig()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Max tick rate").
				Description("Frames per second; \"inf\" removes the limit.").
				Value(&w.TickRate).
				Validate(validateRate),
			huh.NewInput().
				Title("Demo workers").
				Value(&w.Workers).
				Validate(validateNonNegativeInt),
			huh.NewInput().
				Title("History depth").
				Description("Trail ops buffered per agent between ticks.").
				Value(&w.HistoryDepth).
				Validate(validateNonNegativeInt),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Canvas scale").
				Description("World units per terminal column.").
				Value(&w.Scale).
				Validate(validatePositiveFloat),
			huh.NewSelect[string]().
				Title("Default agent color").
				Options(
					huh.NewOption("White", "#ffffff"),
					huh.NewOption("Sky", "#66ccff"),
					huh.NewOption("Orange", "#ff8c40"),
					huh.NewOption("Green", "#8cf273"),
				).
				Value(&w.Color),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Stream address").
				Description("Serve frames over a websocket, e.g. :8080 (empty disables).").
				Value(&w.StreamAddr),
			huh.NewInput().
				Title("Log file").
				Description("Empty discards logs.").
				Value(&w.LogFile),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	cfg, err := buildConfig(w)
	if err != nil {
		return nil, err
	}

	return marshalConfig(cfg)
}

// buildConfig converts the form answers into a validated session.Config.
func buildConfig(w wizardConfig) (session.Config, error) {
	var cfg session.Config

	rate, err := parseRate(w.TickRate)
	if err != nil {
		return cfg, err
	}
	cfg.MaxTickRate = rate

	if cfg.Workers, err = parseNonNegativeInt("workers", w.Workers); err != nil {
		return cfg, err
	}

	depth, err := parseNonNegativeInt("history depth", w.HistoryDepth)
	if err != nil {
		return cfg, err
	}
	cfg.HistoryDepth = &depth

	if s := strings.TrimSpace(w.Scale); s != "" {
		if cfg.Canvas.Scale, err = strconv.ParseFloat(s, 64); err != nil {
			return cfg, fmt.Errorf("canvas scale: %w", err)
		}
	}

	cfg.Defaults.Color = w.Color
	cfg.Stream.Addr = strings.TrimSpace(w.StreamAddr)
	cfg.Log.File = strings.TrimSpace(w.LogFile)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// parseRate accepts a positive number or "inf". An unlimited rate is stored
// as a very large value since YAML has no portable infinity.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "inf" || s == "unlimited" {
		return maxTickRate * 1000, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("tick rate: %w", err)
	}
	if v <= 0 {
		return 0, errors.New("tick rate must be positive")
	}
	return v, nil
}

func parseNonNegativeInt(field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return v, nil
}

func validateRate(s string) error {
	_, err := parseRate(s)
	return err
}

func validateNonNegativeInt(s string) error {
	_, err := parseNonNegativeInt("value", s)
	return err
}

func validatePositiveFloat(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	if v <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func marshalConfig(cfg session.Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// writeConfig writes data to path, refusing to replace an existing file
// unless force is set.
func writeConfig(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o600) //nolint:gosec // path is caller-provided output location
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("write config: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write config: %w", err)
	}

	return f.Close()
}
