// Package notify shows error dialogs to the user of the host process.
//
// On Windows errors appear in a message box owned by the host's main window.
// On Linux they go to the desktop notification service over D-Bus. Anywhere
// else, or when neither is reachable, they are logged.
package notify

import (
	"log/slog"
	"sync"
)

// Notifier reports an error to the user.
type Notifier interface {
	ShowError(title, message string) error
}

// Owned is implemented by notifiers whose dialogs can be parented to a
// native window.
type Owned interface {
	SetOwner(window uintptr)
}

// New returns the best notifier for this platform.
func New(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return newPlatformNotifier(logger)
}

// LogNotifier writes errors to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// ShowError implements Notifier.
func (n LogNotifier) ShowError(title, message string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(title, "message", message)
	return nil
}

// Recorder keeps every error it is shown. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	owner  uintptr
	events []Event
}

// Event is one recorded error.
type Event struct {
	Title   string
	Message string
	Owner   uintptr
}

// ShowError implements Notifier.
func (r *Recorder) ShowError(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Title: title, Message: message, Owner: r.owner})
	return nil
}

// SetOwner implements Owned.
func (r *Recorder) SetOwner(window uintptr) {
	r.mu.Lock()
	r.owner = window
	r.mu.Unlock()
}

// Events returns a copy of the recorded errors.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
