package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Board is an in-memory surface. The TUI renders Active() and is told about changes
// through the OnChange hook.
type Board struct {
	mu       sync.Mutex
	items    []Notification
	onChange func()
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// OnChange registers fn to run after every Show or Remove. fn runs outside the lock.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Show implements Surface.
func (b *Board) Show(n Notification) {
	b.mu.Lock()
	b.items = append(b.items, n)
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Remove implements Surface. Unknown ids are ignored.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	removed := false
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			removed = true
			break
		}
	}
	fn := b.onChange
	b.mu.Unlock()
	if removed && fn != nil {
		fn()
	}
}

// Active returns the notifications currently on display, oldest first.
func (b *Board) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

var severityColors = map[Severity]lipgloss.Color{
	SeverityInfo:    lipgloss.Color("#6366F1"),
	SeveritySuccess: lipgloss.Color("#10B981"),
	SeverityWarning: lipgloss.Color("#F59E0B"),
	SeverityError:   lipgloss.Color("#EF4444"),
}

var severityIcons = map[Severity]string{
	SeverityInfo:    "i",
	SeveritySuccess: "✓",
	SeverityWarning: "!",
	SeverityError:   "✗",
}

// Style returns the lipgloss style used to render a severity.
func Style(s Severity) lipgloss.Style {
	c, ok := severityColors[s]
	if !ok {
		c = severityColors[SeverityInfo]
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// Icon returns the one-character marker for a severity.
func Icon(s Severity) string {
	if icon, ok := severityIcons[s]; ok {
		return icon
	}
	return severityIcons[SeverityInfo]
}

// Writer is a surface that prints each notification once as a line. Removal is a no-op
// because printed lines cannot be taken back.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a line-printing surface.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Show implements Surface.
func (w *Writer) Show(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, Style(n.Severity).Render(Icon(n.Severity)+" "+n.Text))
}

// Remove implements Surface.
func (w *Writer) Remove(string) {}
