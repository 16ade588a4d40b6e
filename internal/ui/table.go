package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/tabular"
)

const (
	minCellWidth = 6
	maxCellWidth = 18
)

// renderTable shows the column picker, the selected analysis and a preview
// of the table rows.
func (m Model) renderTable(height int) string {
	styles := m.theme.Styles()
	snap := m.snapshot
	if snap.TableData == nil {
		switch {
		case snap.Table.Loading:
			return styles.InfoText.Render("Loading table...")
		case snap.Table.Failure.Failed():
			return styles.DangerText.Render(snap.Table.Failure.String())
		default:
			return styles.MutedText.Render("No table selected. Press b to choose one.")
		}
	}

	columns := m.renderColumnList(snap.TableData, height)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderKindPanel(),
		"",
		previewTable(snap.TableData, max(height-8, 3), m.theme),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, columns, "  ", right)
}

func (m Model) renderColumnList(t *tabular.Table, height int) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Columns (%d rows, %d numeric)", t.Len(), len(t.NumericColumns()))))
	b.WriteString("\n")
	cols := t.Columns()
	start := 0
	if visible := height - 2; visible > 0 && m.columnCursor >= visible {
		start = m.columnCursor - visible + 1
	}
	for i := start; i < len(cols) && i-start < height-1; i++ {
		line := fmt.Sprintf("%-16s %s", truncate(cols[i], 16), summaryText(t.Summarize(cols[i])))
		if i == m.columnCursor {
			b.WriteString(styles.Selected.Render("› " + line))
		} else {
			b.WriteString(styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryText(s tabular.Summary) string {
	if !s.IsNumeric() {
		return "text"
	}
	out := fmt.Sprintf("μ %.3g σ %.3g", s.Mean, s.StdDev)
	if s.Missing > 0 {
		out += fmt.Sprintf(" (%d NA)", s.Missing)
	}
	return out
}

// renderKindPanel lists the analyses and the parameters of the selected one.
func (m Model) renderKindPanel() string {
	styles := m.theme.Styles()
	if m.catalog == nil {
		return ""
	}
	var kinds []string
	for i, spec := range m.catalog.Specs() {
		label := fmt.Sprintf("%d %s", i+1, spec.DisplayName)
		if i == m.kindIndex {
			kinds = append(kinds, styles.Selected.Render(label))
		} else {
			kinds = append(kinds, styles.MutedText.Render(label))
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(kinds, "  "))
	b.WriteString("\n")
	spec, ok := m.selectedKind()
	if !ok {
		return b.String()
	}
	b.WriteString(m.renderParams(spec))
	return b.String()
}

func (m Model) renderParams(spec analysis.Spec) string {
	styles := m.theme.Styles()
	slot := m.snapshot.Slot(spec.Kind)
	var parts []string
	for _, p := range spec.Params {
		value := slot.Params[p.Name]
		if value == "" {
			value = styles.FaintText.Render("unset")
		} else {
			value = styles.Text.Render(value)
		}
		hint := ""
		switch {
		case len(p.Choices) > 0:
			hint = "m"
		case p.Name == "column":
			hint = "c"
		case p.Name == "x" || p.Name == "y":
			hint = p.Name
		}
		label := p.DisplayLabel()
		if hint != "" {
			label = fmt.Sprintf("%s [%s]", label, hint)
		}
		parts = append(parts, styles.MutedText.Render(label+": ")+value)
	}
	return strings.Join(parts, "   ")
}

// previewTable renders rows of t with the bubbles table component.
func previewTable(t *tabular.Table, height int, theme Theme) string {
	if t == nil {
		return ""
	}
	header := t.Columns()
	if len(header) == 0 {
		return ""
	}
	records := t.Records()
	cols := make([]table.Column, len(header))
	for i, name := range header {
		width := max(min(lipgloss.Width(name), maxCellWidth), minCellWidth)
		for _, rec := range records {
			if i < len(rec) {
				width = max(width, min(lipgloss.Width(rec[i]), maxCellWidth))
			}
		}
		cols[i] = table.Column{Title: name, Width: width}
	}
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row(rec))
	}

	tbl := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(min(max(height, 2), len(rows)+1)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(theme.Accent)).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	s.Cell = s.Cell.Foreground(lipgloss.Color(theme.Text))
	tbl.SetStyles(s)
	return tbl.View()
}
