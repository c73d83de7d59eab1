package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Up      key.Binding
	Down    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Enter   key.Binding
	Back    key.Binding
	Home    key.Binding
	End     key.Binding

	// Actions
	Quit            key.Binding
	Escape          key.Binding
	Filter          key.Binding
	Refresh         key.Binding
	RefreshEpisodes key.Binding
	ToggleWatched   key.Binding
	ToggleVisible   key.Binding
	ToggleArchived  key.Binding
	Rate            key.Binding
	AddAnime        key.Binding
	NewList         key.Binding
	Delete          key.Binding
	MoveUp          key.Binding
	MoveDown        key.Binding
	OpenPage        key.Binding
	Logout          key.Binding

	// Confirmations
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "l", "right"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "h", "left"),
			key.WithHelp("S-tab", "prev tab"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "episodes"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("backspace", "back"),
		),
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "go to bottom"),
		),

		// Actions
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/clear"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		RefreshEpisodes: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh episodes"),
		),
		ToggleWatched: key.NewBinding(
			key.WithKeys(" ", "w"),
			key.WithHelp("space", "toggle watched"),
		),
		ToggleVisible: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "hide/show"),
		),
		ToggleArchived: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "archive"),
		),
		Rate: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "rate"),
		),
		AddAnime: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "add anime"),
		),
		NewList: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new list"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete list"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "move list up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "move list down"),
		),
		OpenPage: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open page"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),

		// Confirmations
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
