// Package notify shows transient, timed messages to the user.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Severity selects the look and the display lifetime of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Display lifetimes. Warnings stay up longer than everything else.
const (
	DefaultLifetime = 3 * time.Second
	WarningLifetime = 6 * time.Second
	FadeDuration    = 300 * time.Millisecond
)

// Lifetime returns how long a notification of this severity is displayed.
func (s Severity) Lifetime() time.Duration {
	if s == SeverityWarning {
		return WarningLifetime
	}
	return DefaultLifetime
}

// Notification is one ephemeral message.
type Notification struct {
	ID        string
	Text      string
	Severity  Severity
	CreatedAt time.Time
}

// Surface is where notifications are displayed.
type Surface interface {
	Show(n Notification)
	Remove(id string)
}

// Notifier is what components depend on to surface a message.
type Notifier interface {
	Notify(text string, severity Severity) Notification
}

// Dispatcher creates notifications on a surface and removes each one after its lifetime.
// Notifications are independent of each other; the surface is the only shared state.
type Dispatcher struct {
	surface   Surface
	logger    *zap.Logger
	lifetime  func(Severity) time.Duration
	fade      time.Duration
	afterFunc func(time.Duration, func()) *time.Timer
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLifetime overrides the severity lifetime function.
func WithLifetime(fn func(Severity) time.Duration) Option {
	return func(d *Dispatcher) { d.lifetime = fn }
}

// WithFade overrides the fade-out interval that follows the display lifetime.
func WithFade(fade time.Duration) Option {
	return func(d *Dispatcher) { d.fade = fade }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher bound to surface.
func NewDispatcher(surface Surface, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		surface:   surface,
		logger:    zap.NewNop(),
		lifetime:  Severity.Lifetime,
		fade:      FadeDuration,
		afterFunc: time.AfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify shows text and schedules its removal.
func (d *Dispatcher) Notify(text string, severity Severity) Notification {
	if severity == "" {
		severity = SeverityInfo
	}
	n := Notification{
		ID:        uuid.New().String(),
		Text:      text,
		Severity:  severity,
		CreatedAt: d.now(),
	}

	delay := d.lifetime(severity) + d.fade

	d.logger.Debug("notification", zap.String("id", n.ID), zap.String("severity", string(severity)), zap.String("text", text))
	d.surface.Show(n)
	d.afterFunc(delay, func() {
		d.surface.Remove(n.ID)
	})
	return n
}
