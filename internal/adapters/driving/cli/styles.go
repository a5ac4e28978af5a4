package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Colour palette shared by styled command output.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorError   = lipgloss.Color("#F38BA8")
	colorBorder  = lipgloss.Color("#45475A")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(colorSuccess).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Padding(0, 1)
)
