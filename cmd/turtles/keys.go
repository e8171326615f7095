package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit   key.Binding
	Faster key.Binding
	Slower key.Binding
	Clear  key.Binding
	Help   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "double tick rate"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "halve tick rate"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear trails"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Quit, k.Faster, k.Slower, k.Clear, k.Help}
}
