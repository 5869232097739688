// Package timesource rescales the host's time queries.
//
// A Virtualizer keeps a (base, offset) anchor per source. base is the real
// reading at the last re-anchor and offset is the virtual reading at that
// same instant, so that
//
//	virtual(t) = offset + (real(t) - base) * speed
//
// Every speed change re-anchors all sources under the old speed first, which
// keeps virtual time continuous across the change.
package timesource

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"timewarp/internal/hook"
)

// Source identifies one of the virtualized time queries.
type Source int

const (
	TickCount Source = iota
	TickCount64
	PerformanceCounter
	numSources
)

func (s Source) String() string {
	switch s {
	case TickCount:
		return "tick_count"
	case TickCount64:
		return "tick_count_64"
	case PerformanceCounter:
		return "performance_counter"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Target returns the hook target backing s.
func (s Source) Target() hook.Target {
	return hook.Targets[s]
}

// Errors returned by the Virtualizer.
var (
	ErrHookInstall  = errors.New("timesource: hook install failed")
	ErrInvalidSpeed = errors.New("timesource: speed must be a finite value greater than 0")
)

// Snapshot is a consistent copy of the virtualizer state.
type Snapshot struct {
	Speed        float64
	TickBase     uint32
	TickOffset   uint32
	Tick64Base   uint64
	Tick64Offset uint64
	QPCBase      int64
	QPCOffset    int64
}

// Virtualizer answers the hooked time queries with rescaled values.
type Virtualizer struct {
	engine hook.Engine
	logger *slog.Logger

	// Call-through functions, fixed after New.
	realTick   hook.TickCountFunc
	realTick64 hook.TickCount64Func
	realQPC    hook.PerformanceCounterFunc

	mu    sync.RWMutex
	state Snapshot

	hooksMu sync.Mutex
	handles []hook.Handle
}

// New installs detours over all three time sources and anchors them at the
// current real readings with a speed of 1. If any install fails the hooks
// already in place are removed and an error wrapping ErrHookInstall is
// returned.
func New(engine hook.Engine, logger *slog.Logger) (*Virtualizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Virtualizer{
		engine: engine,
		logger: logger,
		// Zero anchors at speed 1 pass real readings through unchanged.
		state: Snapshot{Speed: 1.0},
	}

	// Detours that fire before the anchors exist block here until they do.
	v.mu.Lock()
	defer v.mu.Unlock()

	detours := []any{
		hook.TickCountFunc(v.TickCount),
		hook.TickCount64Func(v.TickCount64),
		hook.PerformanceCounterFunc(v.PerformanceCounter),
	}
	for i, target := range hook.Targets {
		h, err := engine.Install(target, detours[i])
		if err == nil {
			err = v.bindOriginal(h)
		}
		if err != nil {
			if h != nil {
				v.handles = append(v.handles, h)
			}
			installErr := fmt.Errorf("%w: %s: %w", ErrHookInstall, target, err)
			if rbErr := v.removeHooks(); rbErr != nil {
				return nil, errors.Join(installErr, rbErr)
			}
			return nil, installErr
		}
		v.handles = append(v.handles, h)
	}

	tick := v.realTick()
	tick64 := v.realTick64()
	qpc := v.readQPC()
	v.state = Snapshot{
		Speed:        1.0,
		TickBase:     tick,
		TickOffset:   tick,
		Tick64Base:   tick64,
		Tick64Offset: tick64,
		QPCBase:      qpc,
		QPCOffset:    qpc,
	}

	logger.Info("time sources hooked",
		"tick_count", tick,
		"tick_count_64", tick64,
		"performance_counter", qpc)
	return v, nil
}

func (v *Virtualizer) bindOriginal(h hook.Handle) error {
	var ok bool
	switch h.Target() {
	case hook.TickCount:
		v.realTick, ok = h.Original().(hook.TickCountFunc)
	case hook.TickCount64:
		v.realTick64, ok = h.Original().(hook.TickCount64Func)
	case hook.PerformanceCounter:
		v.realQPC, ok = h.Original().(hook.PerformanceCounterFunc)
	default:
		return fmt.Errorf("%w: %q", hook.ErrUnknownTarget, h.Target())
	}
	if !ok {
		return fmt.Errorf("%w: original for %s is %T", hook.ErrSignature, h.Target(), h.Original())
	}
	return nil
}

// SetSpeed re-anchors every source and switches to speed. Readers observe
// either the old or the new state, never a mix.
func (v *Virtualizer) SetSpeed(speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	v.mu.Lock()
	v.setSpeedLocked(speed)
	v.mu.Unlock()
	return nil
}

// CompareAndSetSpeed switches to speed only if the current speed equals old.
func (v *Virtualizer) CompareAndSetSpeed(old, speed float64) (bool, error) {
	if !validSpeed(speed) {
		return false, fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Speed != old {
		return false, nil
	}
	v.setSpeedLocked(speed)
	return true, nil
}

// Callers must hold the write lock.
func (v *Virtualizer) setSpeedLocked(speed float64) {
	s := &v.state

	tick := v.realTick()
	s.TickOffset = rescale32(s, tick)
	s.TickBase = tick

	tick64 := v.realTick64()
	s.Tick64Offset = rescale64(s, tick64)
	s.Tick64Base = tick64

	qpc := v.readQPC()
	s.QPCOffset = rescaleQPC(s, qpc)
	s.QPCBase = qpc

	s.Speed = speed
}

// Speed returns the current multiplier.
func (v *Virtualizer) Speed() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.Speed
}

// Snapshot returns the current anchors and speed.
func (v *Virtualizer) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// TickCount is the detour for hook.TickCount.
func (v *Virtualizer) TickCount() uint32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return rescale32(&v.state, v.realTick())
}

// TickCount64 is the detour for hook.TickCount64.
func (v *Virtualizer) TickCount64() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return rescale64(&v.state, v.realTick64())
}

// PerformanceCounter is the detour for hook.PerformanceCounter. It always
// reports success.
func (v *Virtualizer) PerformanceCounter(counter *int64) bool {
	v.mu.RLock()
	value := rescaleQPC(&v.state, v.readQPC())
	v.mu.RUnlock()
	if counter != nil {
		*counter = value
	}
	return true
}

func (v *Virtualizer) readQPC() int64 {
	var c int64
	v.realQPC(&c)
	return c
}

// Teardown removes all detours. Calling it again is a no-op.
func (v *Virtualizer) Teardown() error {
	err := v.removeHooks()
	if err != nil {
		v.logger.Error("failed to remove time source hooks", "error", err)
		return err
	}
	return nil
}

func (v *Virtualizer) removeHooks() error {
	v.hooksMu.Lock()
	defer v.hooksMu.Unlock()

	var errs []error
	for i := len(v.handles) - 1; i >= 0; i-- {
		h := v.handles[i]
		if err := v.engine.Uninstall(h); err != nil {
			errs = append(errs, fmt.Errorf("timesource: uninstall %s: %w", h.Target(), err))
		}
	}
	v.handles = nil
	return errors.Join(errs...)
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed)
}

// rescale32 works in uint32 space so the result wraps exactly like the
// native counter.
func rescale32(s *Snapshot, real uint32) uint32 {
	delta := real - s.TickBase
	return s.TickOffset + uint32(scaleUnsigned(uint64(delta), s.Speed))
}

func rescale64(s *Snapshot, real uint64) uint64 {
	delta := real - s.Tick64Base
	return s.Tick64Offset + scaleUnsigned(delta, s.Speed)
}

func rescaleQPC(s *Snapshot, real int64) int64 {
	delta := real - s.QPCBase
	return s.QPCOffset + int64(float64(delta)*s.Speed)
}

const twoPow64 = 1 << 64

// scaleUnsigned multiplies delta by speed, reducing the product modulo 2^64
// so the conversion back to an integer is always defined.
func scaleUnsigned(delta uint64, speed float64) uint64 {
	if speed == 1.0 {
		return delta
	}
	f := float64(delta) * speed
	if f >= twoPow64 {
		f = math.Mod(f, twoPow64)
	}
	return uint64(f)
}
