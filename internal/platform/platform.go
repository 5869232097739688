// Package platform provides the host primitives timewarp needs: the real
// time sources the hooks call through to, main-window focus and a console.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"timewarp/internal/hook"
)

// Errors returned by platform queries.
var (
	ErrUnsupported = errors.New("platform: not supported on this system")
	ErrNoWindow    = errors.New("platform: process has no visible top-level window")
)

// Clock is a set of real time sources.
type Clock interface {
	TickCount() uint32
	TickCount64() uint64
	PerformanceCounter(counter *int64) bool
	PerformanceFrequency() int64
}

// NewClock returns the system's real time sources.
func NewClock() Clock {
	return newSystemClock()
}

// Table returns an in-process hook table whose originals are c.
func Table(c Clock) *hook.Table {
	return hook.NewTable(c.TickCount, c.TickCount64, c.PerformanceCounter)
}

// Window is a native top-level window handle.
type Window uintptr

// Foreground reports whether w is the foreground window. A zero Window is
// never in the foreground.
func (w Window) Foreground() bool {
	return w != 0 && foregroundWindow() == w
}

// WindowFinder locates the current process's main window.
type WindowFinder func() (Window, error)

// FindMainWindow returns the first visible, unowned top-level window owned by
// the current process. It returns ErrNoWindow when there is none yet and
// ErrUnsupported on systems without native windows.
func FindMainWindow() (Window, error) {
	return findMainWindow()
}

// DefaultWindowPoll is how often WaitMainWindow retries.
const DefaultWindowPoll = 100 * time.Millisecond

// WaitMainWindow polls find every interval until it yields a window. Errors
// other than ErrNoWindow end the wait immediately.
func WaitMainWindow(ctx context.Context, clock clockwork.Clock, interval time.Duration, find WindowFinder) (Window, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if find == nil {
		find = FindMainWindow
	}
	for {
		w, err := find()
		switch {
		case err == nil:
			return w, nil
		case !errors.Is(err, ErrNoWindow):
			return 0, err
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-clock.After(interval):
		}
	}
}
