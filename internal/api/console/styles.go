package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#9CA3AF") // Gray
)

// styles are bound to the output writer, so colors are dropped when the
// output is not a terminal.
type styles struct {
	playing lipgloss.Style
	paused  lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	current lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		playing: r.NewStyle().Foreground(colorSuccess),
		paused:  r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Foreground(colorError),
		muted:   r.NewStyle().Foreground(colorMuted),
		current: r.NewStyle().Bold(true),
	}
}
