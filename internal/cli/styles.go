package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders against the writer's own color profile, so output to a pipe
// or a buffer stays plain.
type styles struct {
	label lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		label: r.NewStyle().Faint(true),
		err:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warn:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}
