package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextPage key.Binding
	PrevPage key.Binding
	Increase key.Binding
	Decrease key.Binding
	Predict  key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextPage: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab/→", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab/←", "prev page")),
		Increase: key.NewBinding(key.WithKeys("+", "=", "up", "k"), key.WithHelp("+/↑", "horizon +1")),
		Decrease: key.NewBinding(key.WithKeys("-", "down", "j"), key.WithHelp("-/↓", "horizon -1")),
		Predict:  key.NewBinding(key.WithKeys("enter", "p"), key.WithHelp("enter", "predict")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "update data")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.Increase, k.Decrease, k.Predict, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPage, k.PrevPage},
		{k.Increase, k.Decrease},
		{k.Predict, k.Refresh},
		{k.Help, k.Quit},
	}
}
