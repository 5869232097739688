// Package hook defines the function-interception boundary used to virtualize
// the host's time queries.
//
// An Engine installs a detour over one of the fixed Targets and hands back a
// Handle whose Original function calls through to the real implementation.
// How the interception is achieved is up to the Engine. Table interposes
// function slots for Go hosts that route their time queries through it.
package hook

//go:generate mockgen -source=hook.go -destination=mock_engine.go -package=hook

import (
	"errors"
	"fmt"
)

// Target names one of the intercepted time-query functions.
type Target string

// Hooked surface.
const (
	TickCount          Target = "GetTickCount"
	TickCount64        Target = "GetTickCount64"
	PerformanceCounter Target = "QueryPerformanceCounter"
)

// Targets lists every supported target in install order.
var Targets = []Target{TickCount, TickCount64, PerformanceCounter}

// TickCountFunc returns milliseconds since boot, wrapping at 2^32.
type TickCountFunc func() uint32

// TickCount64Func returns milliseconds since boot.
type TickCount64Func func() uint64

// PerformanceCounterFunc writes the high-resolution counter into counter and
// reports success.
type PerformanceCounterFunc func(counter *int64) bool

// Errors returned by engines.
var (
	ErrUnknownTarget = errors.New("hook: unknown target")
	ErrSignature     = errors.New("hook: detour signature does not match target")
	ErrAlreadyHooked = errors.New("hook: target already hooked")
	ErrNotRegistered = errors.New("hook: target has no original function")
)

// Handle is an installed detour.
type Handle interface {
	// Target returns the intercepted function.
	Target() Target

	// Original returns the call-through function. Its dynamic type is the
	// Func type matching Target.
	Original() any
}

// Engine installs and removes detours.
type Engine interface {
	// Install replaces target with detour. detour must be the Func type
	// matching target (or its underlying func type). Install must not invoke
	// the target on the calling goroutine.
	Install(target Target, detour any) (Handle, error)

	// Uninstall restores the original function. Uninstalling a handle that
	// was already removed is a no-op.
	Uninstall(h Handle) error
}

// Normalize converts fn to the Func type declared for target.
func Normalize(target Target, fn any) (any, error) {
	switch target {
	case TickCount:
		switch f := fn.(type) {
		case TickCountFunc:
			return f, nil
		case func() uint32:
			return TickCountFunc(f), nil
		}
	case TickCount64:
		switch f := fn.(type) {
		case TickCount64Func:
			return f, nil
		case func() uint64:
			return TickCount64Func(f), nil
		}
	case PerformanceCounter:
		switch f := fn.(type) {
		case PerformanceCounterFunc:
			return f, nil
		case func(*int64) bool:
			return PerformanceCounterFunc(f), nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return nil, fmt.Errorf("%w: %s got %T", ErrSignature, target, fn)
}
