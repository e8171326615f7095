package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/turtles/pkg/session"
)

func TestLoadDotEnv_MissingIgnored(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TURTLES_TEST_WORKERS=7\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TURTLES_TEST_WORKERS") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "7", os.Getenv("TURTLES_TEST_WORKERS"))
}

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turtles.yaml")

	cfg, err := loadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, session.Config{}, cfg)

	_, err = loadConfig(path, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunOptions_Apply(t *testing.T) {
	base := session.Config{Workers: 2, MaxTickRate: 30}

	kept := runOptions{workers: -1}.apply(base)
	assert.Equal(t, base, kept)

	over := runOptions{workers: 0, fps: 10, streamAddr: ":1", logFile: "x.log"}.apply(base)
	assert.Equal(t, 0, over.Workers)
	assert.InDelta(t, 10.0, over.MaxTickRate, 1e-9)
	assert.Equal(t, ":1", over.Stream.Addr)
	assert.Equal(t, "x.log", over.Log.File)
}

func TestNewLogger(t *testing.T) {
	log, closeLog, err := newLogger(session.LogConfig{})
	require.NoError(t, err)
	log.Info("discarded")
	require.NoError(t, closeLog())

	path := filepath.Join(t.TempDir(), "turtles.log")
	log, closeLog, err = newLogger(session.LogConfig{File: path, Level: "debug"})
	require.NoError(t, err)
	log.Debug("hello", "tick", 1)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
	assert.Contains(t, string(data), "tick=1")
}

func TestCanvasSize_Configured(t *testing.T) {
	w, h, fit := canvasSize(session.CanvasConfig{Width: 40, Height: 12})
	assert.Equal(t, 40, w)
	assert.Equal(t, 12, h)
	assert.False(t, fit)

	w, h, fit = canvasSize(session.CanvasConfig{})
	assert.Positive(t, w)
	assert.Positive(t, h)
	assert.True(t, fit)
}
