package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Back key.Binding

	// Navigation
	Timer    key.Binding
	Entries  key.Binding
	Rates    key.Binding
	Invoices key.Binding
	Home     key.Binding

	// Movement
	Up   key.Binding
	Down key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Timer:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timer")),
	Entries:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "entries")),
	Rates:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rates")),
	Invoices: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invoices")),
	Home:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "home")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}
