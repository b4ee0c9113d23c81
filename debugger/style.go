package debugger

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	location lipgloss.Style
	hit      lipgloss.Style
	prompt   lipgloss.Style
}

// newStyles binds the styles to w, so nothing but plain text is written
// when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		location: r.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")),
		hit: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")),
		prompt: r.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")),
	}
}
