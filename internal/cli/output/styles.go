package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Colours used across the text output.
var (
	colorAccent  = lipgloss.Color("12")
	colorSuccess = lipgloss.Color("10")
	colorWarning = lipgloss.Color("11")
	colorError   = lipgloss.Color("9")
	colorMuted   = lipgloss.Color("8")
)

// Styles holds the text styles of one renderer. They render plain text when
// the renderer's colour profile is ASCII.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Status icons, rendered with String().
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds the style set bound to a lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	base := lr.NewStyle()
	return &Styles{
		Header1: base.Bold(true).Foreground(colorAccent),
		Header2: base.Bold(true),
		Bold:    base.Bold(true),
		Muted:   base.Foreground(colorMuted),

		Success: base.Foreground(colorSuccess),
		Warning: base.Foreground(colorWarning),
		Error:   base.Foreground(colorError).Bold(true),

		StatusSuccess: base.Foreground(colorSuccess).SetString("✓"),
		StatusWarning: base.Foreground(colorWarning).SetString("!"),
		StatusFailed:  base.Foreground(colorError).SetString("✗"),
	}
}
