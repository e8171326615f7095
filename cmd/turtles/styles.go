package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the viewer.
var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
	accentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))            // yellow
	helpBoxStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8"))
)
