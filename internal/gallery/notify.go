package gallery

import (
	"sync"

	"go.uber.org/zap"
)

// Level is the lifecycle stage of a notification.
type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient user-facing message. Notifications sharing an ID
// replace each other, so a loading toast turns into its success or error.
type Notification struct {
	ID      string
	Level   Level
	Message string
}

// Notifier receives notifications emitted by the event service.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(Notification) {}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify logs n at a level matching its stage.
func (l LogNotifier) Notify(n Notification) {
	if l.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("toast", n.ID), zap.String("message", n.Message)}
	switch n.Level {
	case LevelError:
		l.Logger.Warn("notification", fields...)
	case LevelSuccess:
		l.Logger.Info("notification", fields...)
	default:
		l.Logger.Debug("notification", fields...)
	}
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []Notifier

// Notify forwards n to every notifier.
func (m MultiNotifier) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Recorder keeps every notification it receives. eventsctl prints from it and
// tests assert on it.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify stores n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
