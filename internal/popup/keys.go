package popup

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Search     key.Binding
	Filter     key.Binding
	Group      key.Binding
	ShowClosed key.Binding
	Open       key.Binding
	Copy       key.Binding
	Delete     key.Binding
	Clear      key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.Group, k.Open, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Copy},
		{k.Search, k.Filter, k.Group, k.ShowClosed},
		{k.Delete, k.Clear, k.Refresh},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Filter:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle filter")),
	Group:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group by domain")),
	ShowClosed: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "show/hide closed")),
	Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy url")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Clear:      key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear all")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
