package notify

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduled struct {
	delay time.Duration
	fn    func()
}

// fakeTimers records AfterFunc calls so tests can fire them by hand.
type fakeTimers struct {
	mu    sync.Mutex
	calls []scheduled
}

func (f *fakeTimers) afterFunc(d time.Duration, fn func()) *time.Timer {
	f.mu.Lock()
	f.calls = append(f.calls, scheduled{d, fn})
	f.mu.Unlock()
	return nil
}

func (f *fakeTimers) fire(i int) {
	f.mu.Lock()
	fn := f.calls[i].fn
	f.mu.Unlock()
	fn()
}

func newTestDispatcher(surface Surface) (*Dispatcher, *fakeTimers) {
	timers := &fakeTimers{}
	d := NewDispatcher(surface)
	d.afterFunc = timers.afterFunc
	return d, timers
}

func TestSeverityLifetime(t *testing.T) {
	assert.Equal(t, 6*time.Second, SeverityWarning.Lifetime())
	assert.Equal(t, 3*time.Second, SeverityInfo.Lifetime())
	assert.Equal(t, 3*time.Second, SeveritySuccess.Lifetime())
	assert.Equal(t, 3*time.Second, SeverityError.Lifetime())
	assert.Greater(t, SeverityWarning.Lifetime(), SeverityError.Lifetime())
}

func TestNotify_ShowsAndSchedulesRemoval(t *testing.T) {
	board := NewBoard()
	d, timers := newTestDispatcher(board)

	n := d.Notify("heads up", SeverityWarning)

	require.Len(t, board.Active(), 1)
	assert.Equal(t, n.ID, board.Active()[0].ID)
	assert.Equal(t, "heads up", n.Text)
	assert.False(t, n.CreatedAt.IsZero())

	require.Len(t, timers.calls, 1)
	assert.Equal(t, WarningLifetime+FadeDuration, timers.calls[0].delay)

	timers.fire(0)
	assert.Empty(t, board.Active())
}

func TestNotify_DefaultSeverityIsInfo(t *testing.T) {
	board := NewBoard()
	d, timers := newTestDispatcher(board)

	n := d.Notify("plain", "")
	assert.Equal(t, SeverityInfo, n.Severity)
	assert.Equal(t, DefaultLifetime+FadeDuration, timers.calls[0].delay)
}

func TestNotify_IndependentStacking(t *testing.T) {
	board := NewBoard()
	d, timers := newTestDispatcher(board)

	first := d.Notify("one", SeverityInfo)
	second := d.Notify("two", SeverityError)
	third := d.Notify("three", SeveritySuccess)
	require.Len(t, board.Active(), 3)

	// Removing the middle one leaves the others in order.
	timers.fire(1)
	active := board.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, third.ID, active[1].ID)

	// Firing a removal twice is harmless.
	timers.fire(1)
	assert.Len(t, board.Active(), 2)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestNotify_RealTimers(t *testing.T) {
	board := NewBoard()
	d := NewDispatcher(board,
		WithLifetime(func(Severity) time.Duration { return 5 * time.Millisecond }),
		WithFade(0),
	)

	d.Notify("short", SeverityInfo)
	require.Len(t, board.Active(), 1)
	assert.Eventually(t, func() bool { return len(board.Active()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestBoard_OnChange(t *testing.T) {
	board := NewBoard()
	changes := 0
	board.OnChange(func() { changes++ })

	board.Show(Notification{ID: "a"})
	board.Remove("missing")
	board.Remove("a")
	assert.Equal(t, 2, changes)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	d, _ := newTestDispatcher(w)

	d.Notify("File downloaded successfully!", SeveritySuccess)
	assert.Contains(t, buf.String(), "File downloaded successfully!")
	assert.Contains(t, buf.String(), Icon(SeveritySuccess))
}
