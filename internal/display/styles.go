package display

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Accent    = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
	Yellow    = lipgloss.Color("#F59E0B")
	Cyan      = lipgloss.Color("#06B6D4")
)

// styles are bound to one renderer so color output follows the writer,
// not the process stdout
type styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Border  lipgloss.Style
	Banner  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Title:   r.NewStyle().Foreground(White).Bold(true),
		Header:  r.NewStyle().Foreground(Cyan).Bold(true).Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Bold:    r.NewStyle().Bold(true),
		Dim:     r.NewStyle().Foreground(DimGray),
		Accent:  r.NewStyle().Foreground(Accent),
		Success: r.NewStyle().Foreground(Green),
		Warning: r.NewStyle().Foreground(Yellow),
		Error:   r.NewStyle().Foreground(Red),
		Border:  r.NewStyle().Foreground(DimGray),
		Banner: r.NewStyle().
			Foreground(White).
			Background(Accent).
			Bold(true).
			Padding(0, 1),
	}
}
