package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const resolveTimeout = 30 * time.Second

func (m Model) openPrompt(target promptTarget) (tea.Model, tea.Cmd) {
	m.promptTarget = target
	m.prompt.SetValue("")
	switch target {
	case promptTree:
		m.prompt.Prompt = "Tree item id or path: "
		m.prompt.Placeholder = "/user/alice/Public/anolis.phy"
	case promptTable:
		m.prompt.Prompt = "Table item id or path: "
		m.prompt.Placeholder = "/user/alice/Public/anolis.csv"
	}
	cmd := m.prompt.Focus()
	return m, cmd
}

func (m Model) closePrompt() Model {
	m.promptTarget = promptNone
	m.prompt.Blur()
	m.prompt.SetValue("")
	return m
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.closePrompt(), nil
	case key.Matches(msg, m.keys.Confirm):
		target := m.promptTarget
		value := strings.TrimSpace(m.prompt.Value())
		m = m.closePrompt()
		if value == "" || m.ctl == nil {
			return m, nil
		}
		m.setMessage("resolving "+value+"...", false)
		return m, resolveCmd(m.ctx, m.ctl, target, value)
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func resolveCmd(ctx context.Context, ctl Controller, target promptTarget, value string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
		defer cancel()
		ref, err := ctl.Resolve(ctx, value)
		return resolvedMsg{target: target, ref: ref, err: err}
	}
}

func (m Model) handleResolved(msg resolvedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setMessage(msg.err.Error(), true)
		return m, nil
	}
	switch msg.target {
	case promptTree:
		m.ctl.SelectTree(msg.ref)
	case promptTable:
		m.ctl.SelectTable(msg.ref)
		m.columnCursor = 0
	default:
		return m, nil
	}
	m.setMessage("loading "+msg.ref.Name, false)
	return m, fetchSnapshotCmd(m.store)
}
