// Package styles provides the colour palette and lipgloss styles for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	Accent    lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Faint     lipgloss.Color
	Good      lipgloss.Color
	Caution   lipgloss.Color
	Bad       lipgloss.Color
	Frame     lipgloss.Color
	BarBg     lipgloss.Color
}

// DefaultTheme returns the default dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		Secondary: lipgloss.Color("#06B6D4"),
		Text:      lipgloss.Color("#CDD6F4"),
		Faint:     lipgloss.Color("#6C7086"),
		Good:      lipgloss.Color("#A6E3A1"),
		Caution:   lipgloss.Color("#F9E2AF"),
		Bad:       lipgloss.Color("#F38BA8"),
		Frame:     lipgloss.Color("#45475A"),
		BarBg:     lipgloss.Color("#181825"),
	}
}

// Styles contains the styles used by the ask screen.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Label      lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Input      lipgloss.Style
	InputFocus lipgloss.Style

	// Answer frames the synthesized answer.
	Answer lipgloss.Style

	// Confidence colours the confidence figure by band.
	ConfidenceHigh lipgloss.Style
	ConfidenceMid  lipgloss.Style
	ConfidenceLow  lipgloss.Style

	StatusBar lipgloss.Style
}

// NewStyles builds styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	field := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame).
		Padding(0, 1)

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Label: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Text),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Faint),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text).
			Background(theme.Accent),

		Error: lipgloss.NewStyle().
			Foreground(theme.Bad),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Caution),

		Input:      field,
		InputFocus: field.BorderForeground(theme.Accent),

		Answer: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Accent).
			Foreground(theme.Text).
			PaddingLeft(1),

		ConfidenceHigh: lipgloss.NewStyle().Foreground(theme.Good),
		ConfidenceMid:  lipgloss.NewStyle().Foreground(theme.Caution),
		ConfidenceLow:  lipgloss.NewStyle().Foreground(theme.Bad),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Faint).
			Background(theme.BarBg).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Confidence returns the style for a confidence value in [0,1].
func (s *Styles) Confidence(c float64) lipgloss.Style {
	switch {
	case c >= 0.7:
		return s.ConfidenceHigh
	case c >= 0.4:
		return s.ConfidenceMid
	default:
		return s.ConfidenceLow
	}
}
