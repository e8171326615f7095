package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/turtles/pkg/scheduler"
	"github.com/germanamz/turtles/pkg/session"
)

const (
	minTickRate = 1
	maxTickRate = 960
)

// rateController is the part of the session the viewer adjusts.
type rateController interface {
	MaxTickRate() float64
	SetMaxTickRate(fps float64) error
}

// surface is the part of the canvas the viewer manages.
type surface interface {
	Clear()
	Resize(width, height int)
}

// viewerModel is the root bubbletea model. It shows the newest canvas frame
// and a status bar fed by session events.
type viewerModel struct {
	ctx          context.Context
	rate         rateController
	canvas       surface
	frames       *frameSink
	events       *session.EventBus
	keys         keyMap
	fitCanvas    bool
	cancelBridge context.CancelFunc

	frame      string
	width      int
	height     int
	tick       uint64
	agents     int
	fps        float64
	lastRender time.Duration
	help       bool
	helpText   string
	err        error
	stopped    bool
}

func newViewerModel(ctx context.Context, rate rateController, c surface, frames *frameSink, events *session.EventBus, fit bool) viewerModel {
	keys := defaultKeyMap()
	return viewerModel{
		ctx:       ctx,
		rate:      rate,
		canvas:    c,
		frames:    frames,
		events:    events,
		keys:      keys,
		fitCanvas: fit,
		fps:       rate.MaxTickRate(),
		helpText:  helpMarkdown(keys),
	}
}

func (m viewerModel) Init() tea.Cmd {
	return nil
}

func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.fitCanvas {
			m.canvas.Resize(msg.Width, max(msg.Height-1, 1))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.frames, m.events)
		return m, nil

	case frameMsg:
		m.frame = string(msg)
		return m, nil

	case tickMsg:
		m.tick = msg.Tick
		m.agents = msg.Agents
		m.lastRender = msg.Render
		return m, nil

	case agentCreatedMsg:
		m.agents++
		return m, nil

	case rateChangedMsg:
		m.fps = float64(msg)
		return m, nil

	case schedulerStoppedMsg:
		m.stopped = true
		// Only a render failure is worth keeping on screen; anything else
		// means the session was shut down.
		var re *scheduler.RenderError
		if !errors.As(msg.err, &re) {
			return m, tea.Quit
		}
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m viewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help = !m.help

	case key.Matches(msg, m.keys.Clear):
		m.canvas.Clear()

	case key.Matches(msg, m.keys.Faster):
		m.setRate(faster(m.rate.MaxTickRate()))

	case key.Matches(msg, m.keys.Slower):
		m.setRate(slower(m.rate.MaxTickRate()))
	}

	return m, nil
}

func (m *viewerModel) setRate(fps float64) {
	if err := m.rate.SetMaxTickRate(fps); err != nil {
		m.err = err
		return
	}
	m.fps = fps
}

func faster(fps float64) float64 {
	if math.IsInf(fps, 1) {
		return fps
	}
	return min(fps*2, maxTickRate)
}

func slower(fps float64) float64 {
	if math.IsInf(fps, 1) {
		return scheduler.DefaultTickRate
	}
	return max(fps/2, minTickRate)
}

func (m viewerModel) View() string {
	if m.help {
		return helpBoxStyle.Render(renderMarkdown(m.helpText, m.width-4))
	}

	var sb strings.Builder
	sb.WriteString(m.frame)
	if m.frame != "" && !strings.HasSuffix(m.frame, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(m.statusBar())
	return sb.String()
}

func (m viewerModel) statusBar() string {
	rate := "unlimited"
	if !math.IsInf(m.fps, 1) {
		rate = fmt.Sprintf("%g fps", m.fps)
	}

	line := statusStyle.Render(fmt.Sprintf(" tick %d · %d agents · %s · render %s · ",
		m.tick, m.agents, rate, m.lastRender.Round(10*time.Microsecond)))
	line += accentStyle.Render("?") + statusStyle.Render(" help")

	switch {
	case m.err != nil:
		line += "  " + errorStyle.Render("error: "+m.err.Error())
	case m.stopped:
		line += "  " + pausedStyle.Render("stopped")
	}

	return line
}
