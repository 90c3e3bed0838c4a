package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// palette holds the colors of one theme
type palette struct {
	primary lipgloss.Color
	accent  lipgloss.Color
	success lipgloss.Color
	errorC  lipgloss.Color
	muted   lipgloss.Color
	dimmed  lipgloss.Color
	text    lipgloss.Color
	panel   lipgloss.Color
	selected lipgloss.Color
}

var (
	darkPalette = palette{
		primary: lipgloss.Color("#8B5CF6"), // Violet
		accent:  lipgloss.Color("#F59E0B"), // Amber
		success: lipgloss.Color("#10B981"), // Emerald
		errorC:  lipgloss.Color("#EF4444"), // Red
		muted:   lipgloss.Color("#94A3B8"), // Slate 400
		dimmed:  lipgloss.Color("#374151"), // Dark Gray
		text:    lipgloss.Color("#F8FAFC"), // Slate 50
		panel:   lipgloss.Color("#1E293B"), // Slate 800
		selected: lipgloss.Color("#3B0764"), // Purple 950
	}

	lightPalette = palette{
		primary: lipgloss.Color("#6D28D9"),
		accent:  lipgloss.Color("#B45309"),
		success: lipgloss.Color("#047857"),
		errorC:  lipgloss.Color("#B91C1C"),
		muted:   lipgloss.Color("#475569"),
		dimmed:  lipgloss.Color("#CBD5E1"),
		text:    lipgloss.Color("#0F172A"),
		panel:   lipgloss.Color("#E2E8F0"),
		selected: lipgloss.Color("#DDD6FE"),
	}
)

// Styles is the rendered look of the UI for one theme
type Styles struct {
	Title        lipgloss.Style
	Panel        lipgloss.Style
	FocusedPanel lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	Item         lipgloss.Style
	SelectedItem lipgloss.Style
	Disabled     lipgloss.Style
	StatusBar    lipgloss.Style
	StatusError  lipgloss.Style
	StatusOK     lipgloss.Style
	HelpKey      lipgloss.Style
	HelpDesc     lipgloss.Style
	Spinner      lipgloss.Style
}

// NewStyles returns the styles of the dark or light theme
func NewStyles(dark bool) Styles {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(p.primary).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.dimmed).
			Padding(0, 1),

		FocusedPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.primary).
			Padding(0, 1),

		Label: lipgloss.NewStyle().Foreground(p.muted),
		Value: lipgloss.NewStyle().Foreground(p.text).Bold(true),

		Item: lipgloss.NewStyle().
			Foreground(p.text).
			Padding(0, 1),

		SelectedItem: lipgloss.NewStyle().
			Foreground(p.text).
			Background(p.selected).
			Bold(true).
			Padding(0, 1),

		Disabled: lipgloss.NewStyle().
			Foreground(p.dimmed).
			Strikethrough(true),

		StatusBar: lipgloss.NewStyle().
			Background(p.panel).
			Foreground(p.text).
			Padding(0, 1),

		StatusError: lipgloss.NewStyle().Foreground(p.errorC).Bold(true),
		StatusOK:    lipgloss.NewStyle().Foreground(p.success),

		HelpKey:  lipgloss.NewStyle().Foreground(p.primary).Bold(true),
		HelpDesc: lipgloss.NewStyle().Foreground(p.muted),
		Spinner:  lipgloss.NewStyle().Foreground(p.accent),
	}
}

// KeyHint renders a keyboard shortcut hint. Disabled hints are struck through.
func (s Styles) KeyHint(key, description string, enabled bool) string {
	if !enabled {
		return s.Disabled.Render(key + " " + description)
	}
	return s.HelpKey.Render(key) + " " + s.HelpDesc.Render(description)
}

// Logo
const Logo = "🔊 Vorleser"
