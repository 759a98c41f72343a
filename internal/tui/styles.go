package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/teal/internal/config"
)

type styles struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	section  lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	selected lipgloss.Style
	inactive lipgloss.Style
	status   lipgloss.Style
	errText  lipgloss.Style
	help     lipgloss.Style
}

// newStyles builds the palette from user settings. Empty colors fall back to
// the terminal's defaults.
func newStyles(settings config.Settings) styles {
	s := styles{
		frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true),
		section:  lipgloss.NewStyle().Bold(true).Underline(true),
		label:    lipgloss.NewStyle().Width(28),
		value:    lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().Bold(true),
		inactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Faint(true),
		status:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
	}
	if settings.FrameColor != "" {
		s.frame = s.frame.BorderForeground(lipgloss.Color(settings.FrameColor))
		s.section = s.section.Foreground(lipgloss.Color(settings.FrameColor))
	}
	if settings.TaskBoxColor != "" {
		s.title = s.title.Foreground(lipgloss.Color(settings.TaskBoxColor))
	}
	if settings.EntriesColor != "" {
		s.selected = s.selected.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color(settings.EntriesColor))
	}
	return s
}
