package main

import (
	"context"
	"errors"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/turtles/pkg/scheduler"
	"github.com/germanamz/turtles/pkg/session"
)

type fakeRate struct {
	fps float64
	err error
}

func (f *fakeRate) MaxTickRate() float64 { return f.fps }

func (f *fakeRate) SetMaxTickRate(fps float64) error {
	if f.err != nil {
		return f.err
	}
	f.fps = fps
	return nil
}

type fakeSurface struct {
	clears  int
	resized [2]int
}

func (f *fakeSurface) Clear() { f.clears++ }

func (f *fakeSurface) Resize(w, h int) { f.resized = [2]int{w, h} }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestViewer(fps float64, fit bool) (viewerModel, *fakeRate, *fakeSurface) {
	rate := &fakeRate{fps: fps}
	surf := &fakeSurface{}
	m := newViewerModel(context.Background(), rate, surf, newFrameSink(), session.NewEventBus(), fit)
	return m, rate, surf
}

func update(t *testing.T, m viewerModel, msg tea.Msg) (viewerModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	vm, ok := next.(viewerModel)
	require.True(t, ok)
	return vm, cmd
}

func TestViewer_RateKeys(t *testing.T) {
	m, rate, _ := newTestViewer(60, false)

	m, _ = update(t, m, runeKey('+'))
	assert.InDelta(t, 120.0, rate.fps, 1e-9)
	assert.InDelta(t, 120.0, m.fps, 1e-9)

	m, _ = update(t, m, runeKey('-'))
	m, _ = update(t, m, runeKey('-'))
	assert.InDelta(t, 30.0, rate.fps, 1e-9)
	assert.InDelta(t, 30.0, m.fps, 1e-9)
}

func TestViewer_RateBounds(t *testing.T) {
	assert.InDelta(t, float64(maxTickRate), faster(maxTickRate), 1e-9)
	assert.InDelta(t, float64(minTickRate), slower(minTickRate), 1e-9)
	assert.True(t, math.IsInf(faster(math.Inf(1)), 1))
	assert.InDelta(t, scheduler.DefaultTickRate, slower(math.Inf(1)), 1e-9)
}

func TestViewer_RateErrorShown(t *testing.T) {
	m, rate, _ := newTestViewer(60, false)
	rate.err = errors.New("boom")

	m, _ = update(t, m, runeKey('+'))
	require.Error(t, m.err)
	assert.InDelta(t, 60.0, m.fps, 1e-9)
	assert.Contains(t, m.statusBar(), "boom")
}

func TestViewer_ClearAndHelp(t *testing.T) {
	m, _, surf := newTestViewer(60, false)

	m, _ = update(t, m, runeKey('c'))
	assert.Equal(t, 1, surf.clears)

	m, _ = update(t, m, runeKey('?'))
	assert.True(t, m.help)
	assert.NotEmpty(t, m.View())

	m, _ = update(t, m, runeKey('?'))
	assert.False(t, m.help)
}

func TestViewer_Quit(t *testing.T) {
	m, _, _ := newTestViewer(60, false)

	_, cmd := update(t, m, runeKey('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewer_ResizeFitsCanvas(t *testing.T) {
	m, _, surf := newTestViewer(60, true)
	_, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, [2]int{100, 39}, surf.resized)

	m, _, surf = newTestViewer(60, false)
	_, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, [2]int{0, 0}, surf.resized)
}

func TestViewer_FramesAndStatus(t *testing.T) {
	m, _, _ := newTestViewer(math.Inf(1), false)

	m, _ = update(t, m, frameMsg("•→"))
	m, _ = update(t, m, tickMsg(scheduler.TickInfo{Tick: 42, Agents: 3}))

	view := m.View()
	assert.Contains(t, view, "•→")
	assert.Contains(t, view, "tick 42")
	assert.Contains(t, view, "3 agents")
	assert.Contains(t, view, "unlimited")

	m, _ = update(t, m, rateChangedMsg(15))
	assert.Contains(t, m.View(), "15 fps")
}

func TestViewer_SchedulerStopped(t *testing.T) {
	m, _, _ := newTestViewer(60, false)

	_, cmd := update(t, m, schedulerStoppedMsg{err: context.Canceled})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	renderErr := &scheduler.RenderError{Tick: 3, Err: errors.New("disk full")}
	m, cmd = update(t, m, schedulerStoppedMsg{err: renderErr})
	assert.Nil(t, cmd)
	assert.True(t, m.stopped)
	assert.Contains(t, m.statusBar(), "disk full")
}
