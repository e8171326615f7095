package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/turtles/pkg/scheduler"
)

// frameMsg carries the latest rendered canvas.
type frameMsg string

// tickMsg reports a completed tick from the session event bus.
type tickMsg scheduler.TickInfo

// agentCreatedMsg signals that a new agent joined the canvas.
type agentCreatedMsg struct{}

// rateChangedMsg carries the new tick rate limit.
type rateChangedMsg float64

// schedulerStoppedMsg carries the scheduler's exit error.
type schedulerStoppedMsg struct {
	err error
}

// programReadyMsg passes the *tea.Program to the model so it can start bridge goroutines.
type programReadyMsg struct {
	program *tea.Program
}
