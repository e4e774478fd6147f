package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	fieldInvalidStyle = fieldStyle.Copy().
				BorderForeground(errorColor)

	fieldDisabledStyle = fieldStyle.Copy().
				BorderForeground(mutedColor).
				Foreground(mutedColor)

	validationStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Padding(0, 1)
)

// URLField is the playlist URL entry.
type URLField struct {
	input      textinput.Model
	enabled    bool
	invalid    bool
	validation string
}

// NewURLField creates an enabled, focused URL field.
func NewURLField() *URLField {
	ti := textinput.New()
	ti.Placeholder = "https://open.spotify.com/playlist/... or https://youtube.com/playlist?list=..."
	ti.Prompt = "URL: "
	ti.CharLimit = 2048
	ti.Width = 80
	ti.Focus()
	return &URLField{input: ti, enabled: true}
}

// Value returns the current text.
func (f *URLField) Value() string {
	return f.input.Value()
}

// SetWidth resizes the text area.
func (f *URLField) SetWidth(w int) {
	if w > 10 {
		f.input.Width = w - 10
	}
}

// Apply mirrors the enabled, invalid and focus state the controller asks for.
func (f *URLField) Apply(enabled, invalid, focus bool, validation string) tea.Cmd {
	f.enabled = enabled
	f.invalid = invalid
	f.validation = validation

	if !enabled {
		f.input.Blur()
		return nil
	}
	if focus && !f.input.Focused() {
		return f.input.Focus()
	}
	return nil
}

// Update forwards key input while the field is enabled. It reports whether the
// text changed.
func (f *URLField) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !f.enabled {
		return nil, false
	}
	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd, f.input.Value() != before
}

// View renders the field and any validation message under it.
func (f *URLField) View() string {
	style := fieldStyle
	switch {
	case !f.enabled:
		style = fieldDisabledStyle
	case f.invalid:
		style = fieldInvalidStyle
	}
	out := style.Render(f.input.View())
	if f.validation != "" {
		out += "\n" + validationStyle.Render(f.validation)
	}
	return out
}
