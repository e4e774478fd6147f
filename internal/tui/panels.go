package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/playlistdl/internal/lifecycle"
	"github.com/fentz26/playlistdl/internal/notify"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1).
			MarginTop(1)

	successPanelStyle = panelStyle.Copy().
				BorderForeground(successColor)

	errorPanelStyle = panelStyle.Copy().
			BorderForeground(errorColor)

	sectionTitleStyle = lipgloss.NewStyle().Bold(true)
	messageStyle      = lipgloss.NewStyle().Foreground(fgColor)
	hintStyle         = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// renderProgress draws the progress section.
func renderProgress(sp spinner.Model, bar progress.Model, view lifecycle.View) string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Foreground(secondaryColor).Render(sp.View() + " Downloading"))
	b.WriteString("\n")
	b.WriteString(bar.ViewAs(float64(view.Progress) / 100))
	b.WriteString("\n")
	b.WriteString(messageStyle.Render(view.Message))
	return panelStyle.Render(b.String())
}

// renderSuccess draws the success section.
func renderSuccess(view lifecycle.View, saving bool, savedPath string) string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Foreground(successColor).Render("✓ Download ready"))
	b.WriteString("\n")
	b.WriteString(messageStyle.Render(view.Message))
	b.WriteString("\n")
	switch {
	case saving:
		b.WriteString(hintStyle.Render("Saving..."))
	case savedPath != "":
		b.WriteString(hintStyle.Render("Saved to " + savedPath))
	default:
		b.WriteString(hintStyle.Render("ctrl+s: save file • ctrl+r: new download"))
	}
	return successPanelStyle.Render(b.String())
}

// renderError draws the error section.
func renderError(view lifecycle.View) string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Foreground(errorColor).Render("✗ Download failed"))
	b.WriteString("\n")
	b.WriteString(messageStyle.Render(view.ErrorText))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("ctrl+r: try again"))
	return errorPanelStyle.Render(b.String())
}

// renderNotifications draws the active notifications, oldest first.
func renderNotifications(active []notify.Notification, width int) string {
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		text := fmt.Sprintf("%s %s", notify.Icon(n.Severity), n.Text)
		lines = append(lines, truncate(notify.Style(n.Severity).Render(text), width))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(n).Render(s)
}
