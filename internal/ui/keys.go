package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/nzaccagnino/notedeck/internal/i18n"
)

type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Next      key.Binding
	Prev      key.Binding
	Search    key.Binding
	CycleType key.Binding
	Generate  key.Binding
	Enter     key.Binding
	Escape    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func NewKeyMap() KeyMap {
	t := i18n.T()
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", t.KeyUp),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", t.KeyDown),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/→", t.KeyNext),
		),
		Prev: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", t.KeyPrev),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", t.KeySearch),
		),
		CycleType: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", t.KeyCycleType),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", t.KeyGenerate),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", t.KeyOpen),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", t.KeyBack),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", t.KeyHelp),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", t.KeyQuit),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Search, k.Enter, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Escape},
		{k.Next, k.Prev, k.Search},
		{k.CycleType, k.Generate, k.Help, k.Quit},
	}
}
