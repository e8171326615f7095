package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// helpMarkdown builds the help overlay from the key bindings.
func helpMarkdown(k keyMap) string {
	var sb strings.Builder
	sb.WriteString("# turtles\n\n")
	sb.WriteString("Every worker drives one agent. Each move returns once a frame showing it was drawn.\n\n")
	sb.WriteString("| key | action |\n|---|---|\n")
	for _, b := range k.bindings() {
		h := b.Help()
		fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
	}
	return sb.String()
}

// renderMarkdown converts markdown text to terminal-formatted output, falling
// back to the raw text if glamour fails.
func renderMarkdown(text string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
