package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/ironhabit/internal/model"
)

// palette is one colour scheme.
type palette struct {
	High      lipgloss.Color
	Medium    lipgloss.Color
	Low       lipgloss.Color
	Completed lipgloss.Color
	Online    lipgloss.Color
	Offline   lipgloss.Color
	Warn      lipgloss.Color
	Primary   lipgloss.Color
	Surface   lipgloss.Color
	TextMuted lipgloss.Color
	Border    lipgloss.Color
	Highlight lipgloss.Color
}

var darkPalette = palette{
	High:      lipgloss.Color("#FF6B6B"),
	Medium:    lipgloss.Color("#FFB347"),
	Low:       lipgloss.Color("#4ECDC4"),
	Completed: lipgloss.Color("#95E1A3"),
	Online:    lipgloss.Color("#95E1A3"),
	Offline:   lipgloss.Color("#6C757D"),
	Warn:      lipgloss.Color("#FFE66D"),
	Primary:   lipgloss.Color("#4ECDC4"),
	Surface:   lipgloss.Color("#16213e"),
	TextMuted: lipgloss.Color("#888888"),
	Border:    lipgloss.Color("#333333"),
	Highlight: lipgloss.Color("#4ECDC4"),
}

var lightPalette = palette{
	High:      lipgloss.Color("#C0392B"),
	Medium:    lipgloss.Color("#D35400"),
	Low:       lipgloss.Color("#16A085"),
	Completed: lipgloss.Color("#27AE60"),
	Online:    lipgloss.Color("#27AE60"),
	Offline:   lipgloss.Color("#7F8C8D"),
	Warn:      lipgloss.Color("#B7950B"),
	Primary:   lipgloss.Color("#2C3E50"),
	Surface:   lipgloss.Color("#E8EEF1"),
	TextMuted: lipgloss.Color("#7F8C8D"),
	Border:    lipgloss.Color("#BDC3C7"),
	Highlight: lipgloss.Color("#2980B9"),
}

// Styles are the rendered styles for one theme.
type Styles struct {
	Header       lipgloss.Style
	Pane         lipgloss.Style
	PaneFocused  lipgloss.Style
	Item         lipgloss.Style
	ItemSelected lipgloss.Style
	ItemDone     lipgloss.Style
	Match        lipgloss.Style
	Overdue      lipgloss.Style
	StatusBar    lipgloss.Style
	Modal        lipgloss.Style
	Help         lipgloss.Style
	Online       lipgloss.Style
	Offline      lipgloss.Style
	Warn         lipgloss.Style
	Toast        lipgloss.Style
	ProgressFill lipgloss.Style
	ProgressRest lipgloss.Style

	High   lipgloss.Style
	Medium lipgloss.Style
	Low    lipgloss.Style
}

// NewStyles builds the styles for the dark or light theme.
func NewStyles(dark bool) Styles {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),

		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),

		Item: lipgloss.NewStyle(),

		ItemSelected: lipgloss.NewStyle().
			Background(p.Surface).
			Bold(true),

		ItemDone: lipgloss.NewStyle().
			Foreground(p.TextMuted).
			Strikethrough(true),

		Match:   lipgloss.NewStyle().Foreground(p.Highlight),
		Overdue: lipgloss.NewStyle().Foreground(p.High),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(p.Border),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(1, 2),

		Help:    lipgloss.NewStyle().Foreground(p.TextMuted),
		Online:  lipgloss.NewStyle().Foreground(p.Online),
		Offline: lipgloss.NewStyle().Foreground(p.Offline),
		Warn:    lipgloss.NewStyle().Foreground(p.Warn),

		Toast: lipgloss.NewStyle().
			Foreground(p.Surface).
			Background(p.Primary).
			Padding(0, 1),

		ProgressFill: lipgloss.NewStyle().Foreground(p.Completed),
		ProgressRest: lipgloss.NewStyle().Foreground(p.Border),

		High:   lipgloss.NewStyle().Foreground(p.High).Bold(true),
		Medium: lipgloss.NewStyle().Foreground(p.Medium),
		Low:    lipgloss.NewStyle().Foreground(p.Low),
	}
}

// Priority renders a priority badge.
func (s Styles) Priority(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return s.High.Render("high")
	case model.PriorityMedium:
		return s.Medium.Render("med ")
	default:
		return s.Low.Render("low ")
	}
}
