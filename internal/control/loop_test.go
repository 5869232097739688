package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timewarp/internal/keyboard"
)

type fakeSpeeder struct {
	mu      sync.Mutex
	speed   float64
	history []float64
}

func newFakeSpeeder() *fakeSpeeder {
	return &fakeSpeeder{speed: 1.0}
}

func (f *fakeSpeeder) Speed() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speed
}

func (f *fakeSpeeder) SetSpeed(speed float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if speed <= 0 {
		return errors.New("bad speed")
	}
	f.speed = speed
	f.history = append(f.history, speed)
	return nil
}

func (f *fakeSpeeder) CompareAndSetSpeed(old, speed float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speed != old {
		return false, nil
	}
	f.speed = speed
	f.history = append(f.history, speed)
	return true, nil
}

func (f *fakeSpeeder) sets() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.history...)
}

type fakeFocus struct{ fg bool }

func (f *fakeFocus) Foreground() bool { return f.fg }

type recordingNotifier struct {
	mu       sync.Mutex
	titles   []string
	messages []string
}

func (r *recordingNotifier) ShowError(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	ctrlShift = []keyboard.Key{keyboard.VKControl, keyboard.VKShift}
	ctrlAltT  = []keyboard.Key{keyboard.VKControl, keyboard.VKMenu, 'T'}
	reloadKey = []keyboard.Key{keyboard.VKControl, keyboard.VKShift, 'R'}
)

func newTestLoop(settings Settings, opts Options) (*Loop, *fakeSpeeder, *keyboard.SimulatedSampler) {
	sp := newFakeSpeeder()
	s := keyboard.NewSimulatedSampler()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return NewLoop(sp, keyboard.NewTracker(s), settings, opts), sp, s
}

func TestHoldBindingAppliesWhileHeld(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlShift, Speed: 10, Mode: Hold}},
	}, Options{})

	s.Press(keyboard.VKControl, keyboard.VKShift)
	l.Tick()
	assert.Equal(t, 10.0, sp.Speed())

	l.Tick()
	l.Tick()
	assert.Equal(t, 10.0, sp.Speed())

	s.Release(keyboard.VKShift)
	l.Tick()
	assert.Equal(t, 1.0, sp.Speed())
	assert.Equal(t, []float64{10, 1}, sp.sets())
}

func TestToggleBindingFlips(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlAltT, Speed: 4, Mode: Toggle}},
	}, Options{})

	press := func() {
		s.Press(ctrlAltT...)
		l.Tick()
		s.Release(ctrlAltT...)
		l.Tick()
	}

	press()
	assert.Equal(t, 4.0, sp.Speed(), "first press toggles on")

	press()
	assert.Equal(t, 1.0, sp.Speed(), "second press toggles off")

	press()
	assert.Equal(t, 4.0, sp.Speed())
}

func TestToggleOffIsDecidedByCurrentSpeed(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{
			{Keys: ctrlShift, Speed: 2, Mode: Hold},
			{Keys: ctrlAltT, Speed: 2, Mode: Toggle},
		},
	}, Options{})

	s.Press(keyboard.VKControl, keyboard.VKShift)
	l.Tick()
	require.Equal(t, 2.0, sp.Speed())

	// The hold binding already reached 2.0, so the toggle reads itself as on.
	s.Press(keyboard.VKMenu, 'T')
	l.Tick()
	assert.Equal(t, 1.0, sp.Speed())

	s.Release(keyboard.VKMenu, 'T')
	l.Tick()
	assert.Equal(t, 1.0, sp.Speed(), "toggle has no release action")
}

func TestToggleTurnsOffWhenSpeedAlreadyMatches(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlAltT, Speed: 3, Mode: Toggle}},
	}, Options{})
	require.NoError(t, sp.SetSpeed(3))

	s.Press(ctrlAltT...)
	l.Tick()
	assert.Equal(t, 1.0, sp.Speed())
}

func TestBindingsEvaluateInOrder(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{
			{Keys: []keyboard.Key{keyboard.VKControl}, Speed: 5, Mode: Hold},
			{Keys: ctrlShift, Speed: 10, Mode: Hold},
		},
	}, Options{})

	s.Press(keyboard.VKControl, keyboard.VKShift)
	l.Tick()
	assert.Equal(t, []float64{5, 10}, sp.sets())
	assert.Equal(t, 10.0, sp.Speed())
}

func TestFocusGateSkipsBindings(t *testing.T) {
	focus := &fakeFocus{fg: false}
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlShift, Speed: 10, Mode: Hold}},
	}, Options{Focus: focus})

	s.Press(keyboard.VKControl, keyboard.VKShift)
	l.Tick()
	l.Tick()
	assert.Empty(t, sp.sets())

	// Unfocused frames do not observe the keys, so the chord fires once
	// focus returns.
	focus.fg = true
	l.Tick()
	assert.Equal(t, 10.0, sp.Speed())

	focus.fg = false
	s.Release(keyboard.VKShift)
	l.Tick()
	assert.Equal(t, 10.0, sp.Speed(), "release is not seen while unfocused")
}

func TestReloadSwapsSettings(t *testing.T) {
	reloaded := Settings{
		Bindings:   []Binding{{Keys: ctrlAltT, Speed: 8, Mode: Toggle}},
		ReloadKeys: reloadKey,
	}
	calls := 0
	l, _, s := newTestLoop(Settings{
		Bindings:   []Binding{{Keys: ctrlShift, Speed: 10, Mode: Hold}},
		ReloadKeys: reloadKey,
	}, Options{Reload: func() (Settings, error) {
		calls++
		return reloaded, nil
	}})

	s.Press(reloadKey...)
	l.Tick()
	assert.Equal(t, 1, calls)
	assert.Equal(t, reloaded, l.Settings())

	l.Tick()
	assert.Equal(t, 1, calls, "held reload chord does not repeat")
}

func TestReloadFailureKeepsSettingsAndNotifies(t *testing.T) {
	initial := Settings{
		Bindings:   []Binding{{Keys: []keyboard.Key{keyboard.VKF1}, Speed: 10, Mode: Hold}},
		ReloadKeys: reloadKey,
	}
	n := &recordingNotifier{}
	l, sp, s := newTestLoop(initial, Options{
		Notifier: n,
		Reload: func() (Settings, error) {
			return Settings{}, errors.New("speed must be positive")
		},
	})

	s.Press(reloadKey...)
	l.Tick()
	assert.Equal(t, initial, l.Settings())
	require.Equal(t, 1, n.count())
	assert.Contains(t, n.messages[0], "speed must be positive")

	s.Press(keyboard.VKF1)
	l.Tick()
	assert.Equal(t, 10.0, sp.Speed())
}

func TestReloadRunsEvenWhenUnfocused(t *testing.T) {
	calls := 0
	l, _, s := newTestLoop(Settings{ReloadKeys: reloadKey}, Options{
		Focus: &fakeFocus{fg: false},
		Reload: func() (Settings, error) {
			calls++
			return Settings{ReloadKeys: reloadKey}, nil
		},
	})

	s.Press(reloadKey...)
	l.Tick()
	assert.Equal(t, 1, calls)
}

func TestRejectedSpeedIsLogged(t *testing.T) {
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlShift, Speed: -1, Mode: Hold}},
	}, Options{})

	s.Press(ctrlShift...)
	assert.NotPanics(t, l.Tick)
	assert.Equal(t, 1.0, sp.Speed())
}

func TestRunTicksOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l, sp, s := newTestLoop(Settings{
		Bindings: []Binding{{Keys: ctrlShift, Speed: 10, Mode: Hold}},
	}, Options{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	s.Press(ctrlShift...)
	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return sp.Speed() == 10 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRunAppliesPushedSettings(t *testing.T) {
	clock := clockwork.NewFakeClock()
	updates := make(chan Settings)
	errs := make(chan error)
	n := &recordingNotifier{}
	l, _, _ := newTestLoop(Settings{}, Options{
		Clock:        clock,
		Notifier:     n,
		Updates:      updates,
		UpdateErrors: errs,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	pushed := Settings{Bindings: []Binding{{Keys: ctrlShift, Speed: 3}}}
	updates <- pushed
	errs <- errors.New("parse error")
	close(updates)
	close(errs)

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, pushed, l.Settings())
	assert.Contains(t, n.messages[0], "parse error")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "hold", Hold.String())
	assert.Equal(t, "toggle", Toggle.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}
