package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette colors shared by all styles.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#02A65A", Dark: "#02BA84"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#C98A00", Dark: "#F2C94C"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D12F2F", Dark: "#FF5F5F"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#1F7AC4", Dark: "#5FB3F9"}
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// ObjectID highlights catalog ids such as u42
	ObjectID lipgloss.Style

	StatusFresh lipgloss.Style
	StatusStale lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer so that the color
// profile follows the destination writer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:     r.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1),
		Header2:     r.NewStyle().Bold(true).Foreground(colorPrimary),
		Bold:        r.NewStyle().Bold(true),
		Muted:       r.NewStyle().Foreground(colorMuted),
		Success:     r.NewStyle().Foreground(colorSuccess),
		Warning:     r.NewStyle().Foreground(colorWarning),
		Error:       r.NewStyle().Foreground(colorError).Bold(true),
		Info:        r.NewStyle().Foreground(colorInfo),
		ObjectID:    r.NewStyle().Foreground(colorInfo),
		StatusFresh: r.NewStyle().Foreground(colorSuccess).Bold(true),
		StatusStale: r.NewStyle().Foreground(colorError).Bold(true),
	}
}

// Staleness renders a fresh/stale marker.
func (s *Styles) Staleness(stale bool) string {
	if stale {
		return s.StatusStale.Render("stale")
	}
	return s.StatusFresh.Render("fresh")
}
