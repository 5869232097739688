// Package control drives the time multiplier from keyboard chords.
//
// A Loop runs on one goroutine at a fixed cadence. Each tick it checks the
// reload chord, optionally gates on the host window having focus, then
// evaluates the bindings in order:
//
//	chord freshly held, Hold    -> speed
//	chord freshly held, Toggle  -> 1.0 if already at speed, else speed
//	chord released, Hold        -> 1.0
//
// There is no per-binding state: whether a toggle is "on" is read back from
// the current multiplier. Two bindings sharing a speed therefore toggle each
// other off.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"timewarp/internal/keyboard"
)

// DefaultInterval is the loop cadence.
const DefaultInterval = 16 * time.Millisecond

// ErrReload wraps every failed reload.
var ErrReload = errors.New("control: config reload failed")

// Mode selects how a binding reacts to its chord.
type Mode int

const (
	// Hold applies the speed while the chord is held.
	Hold Mode = iota
	// Toggle flips the speed on each fresh press of the chord.
	Toggle
)

func (m Mode) String() string {
	switch m {
	case Hold:
		return "hold"
	case Toggle:
		return "toggle"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Binding maps a chord to a speed.
type Binding struct {
	Keys  []keyboard.Key
	Speed float64
	Mode  Mode
}

// Settings is the part of the configuration the loop consumes. It is
// replaced wholesale on reload.
type Settings struct {
	Bindings   []Binding
	ReloadKeys []keyboard.Key
}

// Speeder is the multiplier the loop drives.
type Speeder interface {
	Speed() float64
	SetSpeed(speed float64) error
}

// Focus reports whether the host window is in the foreground.
type Focus interface {
	Foreground() bool
}

// Notifier surfaces errors to the user.
type Notifier interface {
	ShowError(title, message string) error
}

// ReloadFunc loads fresh settings when the reload chord fires.
type ReloadFunc func() (Settings, error)

// Options configures a Loop. Zero values select defaults.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger

	// Focus gates binding evaluation when set.
	Focus Focus

	// Reload is invoked by the reload chord.
	Reload ReloadFunc

	// Notifier reports failed reloads.
	Notifier Notifier

	// Updates and UpdateErrors deliver settings pushed from outside the
	// loop, such as a config file watcher.
	Updates      <-chan Settings
	UpdateErrors <-chan error
}

// Loop is the fixed-cadence controller.
type Loop struct {
	speeder  Speeder
	tracker  *keyboard.Tracker
	settings Settings

	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	focus      Focus
	reload     ReloadFunc
	notifier   Notifier
	updates    <-chan Settings
	updateErrs <-chan error
}

// NewLoop creates a Loop over speeder and tracker.
func NewLoop(speeder Speeder, tracker *keyboard.Tracker, settings Settings, opts Options) *Loop {
	l := &Loop{
		speeder:    speeder,
		tracker:    tracker,
		settings:   settings,
		interval:   opts.Interval,
		clock:      opts.Clock,
		logger:     opts.Logger,
		focus:      opts.Focus,
		reload:     opts.Reload,
		notifier:   opts.Notifier,
		updates:    opts.Updates,
		updateErrs: opts.UpdateErrors,
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	if l.clock == nil {
		l.clock = clockwork.NewRealClock()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Settings returns the active settings.
func (l *Loop) Settings() Settings {
	return l.settings
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("control loop started",
		"interval", l.interval,
		"bindings", len(l.settings.Bindings))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped")
			return nil

		case <-ticker.Chan():
			l.Tick()

		case s, ok := <-l.updates:
			if !ok {
				l.updates = nil
				continue
			}
			l.apply(s)

		case err, ok := <-l.updateErrs:
			if !ok {
				l.updateErrs = nil
				continue
			}
			l.reportReloadError(err)
		}
	}
}

// Tick runs one evaluation pass and commits the keyboard frame.
func (l *Loop) Tick() {
	defer l.tracker.EndFrame()

	if len(l.settings.ReloadKeys) > 0 && l.tracker.AllPressed(l.settings.ReloadKeys) {
		l.reloadSettings()
	}

	if l.focus != nil && !l.focus.Foreground() {
		return
	}

	for _, b := range l.settings.Bindings {
		l.evaluate(b)
	}
}

func (l *Loop) evaluate(b Binding) {
	switch {
	case l.tracker.AllPressed(b.Keys):
		if b.Mode == Toggle && l.speeder.Speed() == b.Speed {
			l.logger.Debug("toggle off, reset speed to 1.0", "keys", b.Keys)
			l.setSpeed(1.0)
			return
		}
		l.logger.Debug("set speed", "speed", b.Speed, "mode", b.Mode, "keys", b.Keys)
		l.setSpeed(b.Speed)

	case b.Mode == Hold && l.tracker.AnyReleased(b.Keys):
		l.logger.Debug("keys released, reset speed to 1.0", "keys", b.Keys)
		l.setSpeed(1.0)
	}
}

func (l *Loop) setSpeed(speed float64) {
	if err := l.speeder.SetSpeed(speed); err != nil {
		l.logger.Error("rejected speed change", "speed", speed, "error", err)
	}
}

func (l *Loop) reloadSettings() {
	if l.reload == nil {
		return
	}
	l.logger.Debug("reloading config")

	s, err := l.reload()
	if err != nil {
		l.reportReloadError(err)
		return
	}
	l.apply(s)
}

func (l *Loop) apply(s Settings) {
	l.settings = s
	l.logger.Info("bindings reloaded",
		"bindings", len(s.Bindings),
		"reload_keys", s.ReloadKeys)
}

func (l *Loop) reportReloadError(err error) {
	if !errors.Is(err, ErrReload) {
		err = fmt.Errorf("%w: %w", ErrReload, err)
	}
	l.logger.Warn("keeping previous bindings", "error", err)

	if l.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Error: %v\nThe previous bindings remain active.", err)
	if nerr := l.notifier.ShowError("Failed to reload timewarp config", msg); nerr != nil {
		l.logger.Warn("failed to show reload error", "error", nerr)
	}
}
