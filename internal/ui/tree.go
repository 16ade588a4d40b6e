package ui

import (
	"fmt"
	"strings"

	"github.com/arborworkflows/arbor-apps/internal/phylo"
)

// renderTree draws the tree as an indented outline whose bars are
// proportional to branch length.
func (m Model) renderTree(height int) string {
	styles := m.theme.Styles()
	snap := m.snapshot
	if snap.TreeData == nil {
		switch {
		case snap.Tree.Loading:
			return styles.InfoText.Render("Loading tree...")
		case snap.Tree.Failure.Failed():
			return styles.DangerText.Render(snap.Tree.Failure.String())
		default:
			return styles.MutedText.Render("No tree selected. Press t to choose one.")
		}
	}

	scale := snap.TreeScale
	if scale <= 0 {
		scale = 1
	}
	lines := snap.TreeData.Outline()
	barSpace := max(m.width/2, 10)

	var b strings.Builder
	title := fmt.Sprintf("%s · %d taxa · scale %.2fx", snap.TreeData.Name(), len(snap.TreeData.Terms()), scale)
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n")
	for i, line := range lines {
		if i >= height-2 {
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("… %d more nodes", len(lines)-i)))
			break
		}
		b.WriteString(treeLine(line, scale, barSpace))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func treeLine(line phylo.Line, scale float64, width int) string {
	indent := strings.Repeat("  ", line.Depth)
	bar := strings.Repeat("─", phylo.BarWidth(line.Branch, scale, width))
	if line.Label == "" {
		return indent + bar + "┐"
	}
	return indent + bar + " " + line.Label
}
