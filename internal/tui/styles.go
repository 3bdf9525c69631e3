// Package tui holds the interactive terminal views: the side-by-side diff
// viewer and the generation progress screen.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles is the palette for one theme.
type Styles struct {
	Header    lipgloss.Style
	File      lipgloss.Style
	Added     lipgloss.Style
	Removed   lipgloss.Style
	Unchanged lipgloss.Style
	Gutter    lipgloss.Style
	Faint     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles builds the palette for theme ("light", "dark" or "system").
func NewStyles(theme string) Styles {
	pick := func(light, dark string) lipgloss.TerminalColor {
		switch theme {
		case "light":
			return lipgloss.Color(light)
		case "dark":
			return lipgloss.Color(dark)
		}
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}

	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(pick("55", "63")),
		File:      lipgloss.NewStyle().Bold(true).Foreground(pick("24", "6")),
		Added:     lipgloss.NewStyle().Foreground(pick("28", "42")),
		Removed:   lipgloss.NewStyle().Foreground(pick("160", "197")),
		Unchanged: lipgloss.NewStyle(),
		Gutter:    lipgloss.NewStyle().Foreground(pick("245", "240")),
		Faint:     lipgloss.NewStyle().Faint(true),
		Success:   lipgloss.NewStyle().Foreground(pick("28", "78")),
		Error:     lipgloss.NewStyle().Foreground(pick("160", "197")),
		Border:    lipgloss.NewStyle().Foreground(pick("250", "8")),
	}
}
