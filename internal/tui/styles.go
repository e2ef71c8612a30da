package tui

import (
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Styles is the themed style set for the dashboard
type Styles struct {
	Accent       lipgloss.Color
	Acceleration lipgloss.Color
	Speed        lipgloss.Color

	Title        lipgloss.Style
	Status       lipgloss.Style
	Muted        lipgloss.Style
	Error        lipgloss.Style
	Label        lipgloss.Style
	Pane         lipgloss.Style
	PaneActive   lipgloss.Style
	Card         lipgloss.Style
	CardTitle    lipgloss.Style
	CardValue    lipgloss.Style
	SelectedItem lipgloss.Style
	NormalItem   lipgloss.Style
	Help         lipgloss.Style
	Disabled     lipgloss.Style
}

// flavorFor maps a theme name to a catppuccin flavour, defaulting to mocha
func flavorFor(theme string) catppuccin.Flavor {
	switch strings.ToLower(theme) {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	default:
		return catppuccin.Mocha
	}
}

// NewStyles builds the style set for a catppuccin theme name
func NewStyles(theme string) Styles {
	f := flavorFor(theme)
	color := func(c catppuccin.Color) lipgloss.Color { return lipgloss.Color(c.Hex) }

	accent := color(f.Mauve())
	text := color(f.Text())
	muted := color(f.Overlay1())
	surface := color(f.Surface1())

	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(surface).
		Padding(0, 1)

	return Styles{
		Accent:       accent,
		Acceleration: color(f.Peach()),
		Speed:        color(f.Blue()),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Status: lipgloss.NewStyle().
			Foreground(muted),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(color(f.Red())).
			Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(color(f.Sapphire())).
			Bold(true),
		Pane:       pane,
		PaneActive: pane.BorderForeground(color(f.Lavender())),
		Card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(surface).
			Padding(0, 2),
		CardTitle: lipgloss.NewStyle().
			Foreground(muted),
		CardValue: lipgloss.NewStyle().
			Foreground(text).
			Bold(true),
		SelectedItem: lipgloss.NewStyle().
			Background(color(f.Surface0())).
			Foreground(text).
			Bold(true),
		NormalItem: lipgloss.NewStyle().
			Foreground(text),
		Help: lipgloss.NewStyle().
			Foreground(muted),
		Disabled: lipgloss.NewStyle().
			Foreground(color(f.Surface2())).
			Italic(true),
	}
}
