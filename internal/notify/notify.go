// Package notify carries fire-and-forget user facing messages.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Variant is the severity of a notification
type Variant int

const (
	VariantInfo Variant = iota
	VariantSuccess
	VariantWarning
	VariantDanger
)

// String returns the string representation of Variant
func (v Variant) String() string {
	switch v {
	case VariantInfo:
		return "info"
	case VariantSuccess:
		return "success"
	case VariantWarning:
		return "warning"
	case VariantDanger:
		return "danger"
	default:
		return "unknown"
	}
}

// Notification is a single user visible message
type Notification struct {
	Variant     Variant
	Title       string
	Description string
}

// Notifier delivers notifications. Implementations must not block.
// A form session calls Notify without holding its lock, so Notify may read the session.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications through logrus
type LogNotifier struct {
	logger logrus.FieldLogger
}

// NewLogNotifier creates a notifier backed by logger, or the standard logger when nil
func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (l *LogNotifier) Notify(n Notification) {
	entry := l.logger.WithField("variant", n.Variant.String())
	if n.Description != "" {
		entry = entry.WithField("detail", n.Description)
	}

	switch n.Variant {
	case VariantDanger:
		entry.Error(n.Title)
	case VariantWarning:
		entry.Warn(n.Title)
	default:
		entry.Info(n.Title)
	}
}

// Recorder keeps every notification it receives and optionally forwards them
type Recorder struct {
	mu     sync.Mutex
	next   Notifier
	events []Notification
}

// NewRecorder creates a recorder forwarding to next, which may be nil
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

// Notify implements Notifier
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.events = append(r.events, n)
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(n)
	}
}

// Notifications returns a copy of everything recorded so far
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.events...)
}

// Count returns how many notifications of variant were recorded
func (r *Recorder) Count(variant Variant) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Variant == variant {
			n++
		}
	}
	return n
}
