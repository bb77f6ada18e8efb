package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Tab      key.Binding
	Enter    key.Binding
	Add      key.Binding
	Done     key.Binding
	Delete   key.Binding
	Undo     key.Binding
	Search   key.Binding
	Stats    key.Binding
	Theme    key.Binding
	Help     key.Binding
	Quit     key.Binding
	Escape   key.Binding
	Refresh  key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
	MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "todos/habits")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select/toggle")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Done:     key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "toggle done")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo delete")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Stats:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stats")),
	Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "light/dark")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Refresh:  key.NewBinding(key.WithKeys("R", "r"), key.WithHelp("R", "push now")),
}

// helpBindings is the order keys are listed on the help screen.
var helpBindings = []key.Binding{
	keys.Up, keys.Down, keys.MoveUp, keys.MoveDown, keys.Tab, keys.Add,
	keys.Done, keys.Delete, keys.Undo, keys.Search, keys.Stats, keys.Theme,
	keys.Refresh, keys.Help, keys.Quit,
}
