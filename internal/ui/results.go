package ui

import (
	"fmt"
	"strings"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/state"
)

// renderResults shows the selected analysis: its parameters, the last job
// status, any failure and the fetched artifacts.
func (m Model) renderResults(height int) string {
	styles := m.theme.Styles()
	spec, ok := m.selectedKind()
	if !ok {
		return styles.MutedText.Render("No analyses available.")
	}
	slot := m.snapshot.Slot(spec.Kind)

	var b strings.Builder
	b.WriteString(m.renderKindPanel())
	b.WriteString("\n\n")
	b.WriteString(m.renderSlotStatus(slot))
	b.WriteString("\n")

	if slot.Failure.Failed() {
		b.WriteString(styles.DangerText.Render(slot.Failure.String()))
		b.WriteString("\n")
	}
	if slot.Results == nil {
		if !slot.Processing && !slot.Failure.Failed() {
			b.WriteString(styles.MutedText.Render("Pick a tree, a table and every parameter to run this analysis."))
		}
		return b.String()
	}

	remaining := height - 5
	for _, out := range spec.Outputs {
		art, ok := slot.Results[out.Name]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("%s (%s)", art.Name, art.FileName)))
		b.WriteString("\n")
		switch art.Format {
		case analysis.FormatImage:
			b.WriteString(styles.InfoText.Render(art.URL))
			b.WriteString("\n")
			remaining -= 3
		default:
			rows := max(min(remaining-3, art.Table.Len()+1), 2)
			b.WriteString(previewTable(art.Table, rows, m.theme))
			b.WriteString("\n")
			remaining -= rows + 3
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSlotStatus(slot state.Slot) string {
	styles := m.theme.Styles()
	var parts []string
	if slot.HasStatus {
		parts = append(parts, styles.StatusBadge(slot.Status))
	}
	if slot.Processing {
		parts = append(parts, styles.InfoText.Render("running..."))
	}
	if len(parts) == 0 {
		return styles.FaintText.Render("idle")
	}
	return strings.Join(parts, " ")
}
