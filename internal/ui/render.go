package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arborworkflows/arbor-apps/internal/state"
)

// renderMain renders header, content and footer.
func (m Model) renderMain() string {
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	body := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(m.renderContent(bodyHeight))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderContent(height int) string {
	switch m.currentView {
	case ViewTree:
		return m.renderTree(height)
	case ViewTable:
		return m.renderTable(height)
	case ViewResults:
		return m.renderResults(height)
	case ViewLogs:
		return m.renderLogs(height)
	default:
		return ""
	}
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	var tabs []string
	for _, v := range viewOrder {
		label := " " + v.String() + " "
		if v == m.currentView {
			tabs = append(tabs, styles.Selected.Bold(true).Render(label))
		} else {
			tabs = append(tabs, styles.MutedText.Render(label))
		}
	}

	line1 := styles.Brand.Render("arbor") + "  " + strings.Join(tabs, " ")
	line2 := m.inputSummary("tree", m.snapshot.Tree) + styles.FaintText.Render("  │  ") + m.inputSummary("table", m.snapshot.Table)

	return styles.Header.Width(m.width).Render(line1 + "\n" + line2)
}

func (m Model) inputSummary(label string, in state.Input) string {
	styles := m.theme.Styles()
	name := in.Ref.Name
	if name == "" {
		name = in.Ref.ID
	}
	if !in.Ref.Selected() {
		return styles.MutedText.Render(label + ": none")
	}
	out := styles.MutedText.Render(label+": ") + styles.Text.Render(name)
	switch {
	case in.Loading:
		out += " " + styles.InfoText.Render("(loading)")
	case in.Failure.Failed():
		out += " " + styles.DangerText.Render("("+string(in.Failure.Kind)+")")
	}
	return out
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.promptTarget != promptNone {
		return styles.Footer.Width(m.width).Render(m.prompt.View())
	}
	if m.message != "" {
		style := styles.Text
		if m.messageErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(style.Render(m.message))
	}
	hints := []string{"t tree", "b table", "tab views", "h help", "q quit"}
	if spec, ok := m.selectedKind(); ok {
		hints = append([]string{fmt.Sprintf("[%d] %s", m.kindIndex+1, spec.DisplayName)}, hints...)
	}
	return styles.Footer.Width(m.width).Render(strings.Join(hints, " · "))
}

// truncate shortens s to width cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width == 1 || len(runes) <= 1 {
		return string(runes[:min(len(runes), width)])
	}
	for lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
