package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderLogs shows the tail of the session log that fits the view.
func (m Model) renderLogs(height int) string {
	styles := m.theme.Styles()
	if m.logErr != nil {
		return styles.DangerText.Render(m.logErr.Error())
	}
	if len(m.logLines) == 0 {
		if m.logPath == "" {
			return styles.MutedText.Render("Logging is disabled.")
		}
		return styles.MutedText.Render("No log entries yet.")
	}

	lines := m.logLines
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(m.levelStyle(line.Level, styles).Render(truncate(line.Text, m.width)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) levelStyle(level slog.Level, styles Styles) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styles.DangerText
	case level >= slog.LevelWarn:
		return styles.WarningText
	case level >= slog.LevelInfo:
		return styles.Text
	default:
		return styles.FaintText
	}
}
