package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	formatStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	formatSelectedStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true).
				Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Background(secondaryColor).
			Padding(0, 2)

	actionBusyStyle = actionStyle.Copy().
			Background(mutedColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)
)
