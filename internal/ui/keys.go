package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding

	// Inputs
	PickTree  key.Binding
	PickTable key.Binding

	// Tree
	ScaleUp   key.Binding
	ScaleDown key.Binding

	// Analysis
	Up          key.Binding
	Down        key.Binding
	Kind        key.Binding
	SetColumn   key.Binding
	SetX        key.Binding
	SetY        key.Binding
	CycleChoice key.Binding
	Rerun       key.Binding

	// Prompt
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),

		PickTree: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Select tree"),
		),
		PickTable: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Select table"),
		),

		ScaleUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Widen tree"),
		),
		ScaleDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "Narrow tree"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "Previous column"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "Next column"),
		),
		Kind: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "Pick analysis"),
		),
		SetColumn: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Use column as trait"),
		),
		SetX: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Use column as X"),
		),
		SetY: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Use column as Y"),
		),
		CycleChoice: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Cycle model"),
		),
		Rerun: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Run again"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// helpSections groups bindings for the help overlay.
func (k keyMap) helpSections() []helpSection {
	return []helpSection{
		{title: "Navigation", bindings: []key.Binding{k.Tab, k.ShiftTab, k.Up, k.Down}},
		{title: "Inputs", bindings: []key.Binding{k.PickTree, k.PickTable, k.ScaleUp, k.ScaleDown}},
		{title: "Analysis", bindings: []key.Binding{k.Kind, k.SetColumn, k.SetX, k.SetY, k.CycleChoice, k.Rerun}},
		{title: "General", bindings: []key.Binding{k.CycleTheme, k.Help, k.Quit}},
	}
}
