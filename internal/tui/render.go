package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusIcon returns a colored icon for a project status.
func StatusIcon(status string) string {
	switch status {
	case "success":
		return IconSuccess
	case "failure":
		return IconError
	case "no-tests":
		return StyleMuted.Render("○")
	case "unfinished":
		return IconWarning
	default:
		return IconPending
	}
}

// Table renders rows as aligned columns. Cell widths ignore ANSI sequences.
type Table struct {
	Headers []string
	Rows    [][]string
}

func (t Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorMuted)
	writeRow := func(cells []string, style func(string) string) {
		b.WriteString("  ")
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			b.WriteString(style(cell))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", max(widths[i]-lipgloss.Width(cell)+2, 1)))
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.Headers, func(s string) string { return headerStyle.Render(s) })
	for _, row := range t.Rows {
		writeRow(row, func(s string) string { return s })
	}
	return b.String()
}
