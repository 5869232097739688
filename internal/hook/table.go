package hook

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Table is an in-process Engine. Each target owns a slot holding the
// function currently answering calls; hosts call through the Table's
// dispatch methods and observe whichever detour is installed.
type Table struct {
	mu    sync.Mutex // serializes Install and Uninstall
	slots map[Target]*slot
	seq   atomic.Uint64
}

type slot struct {
	original any
	current  atomic.Value // holds the Func type for the target
	active   *tableHandle
}

type tableHandle struct {
	id       uint64
	target   Target
	original any
}

func (h *tableHandle) Target() Target { return h.target }
func (h *tableHandle) Original() any  { return h.original }

// NewTable creates a Table whose slots initially answer with the given real
// functions.
func NewTable(tick TickCountFunc, tick64 TickCount64Func, qpc PerformanceCounterFunc) *Table {
	t := &Table{slots: make(map[Target]*slot, len(Targets))}
	t.register(TickCount, tick)
	t.register(TickCount64, tick64)
	t.register(PerformanceCounter, qpc)
	return t
}

func (t *Table) register(target Target, fn any) {
	s := &slot{original: fn}
	s.current.Store(fn)
	t.slots[target] = s
}

// Install implements Engine.
func (t *Table) Install(target Target, detour any) (Handle, error) {
	fn, err := Normalize(target, detour)
	if err != nil {
		return nil, err
	}
	if isNilFunc(fn) {
		return nil, fmt.Errorf("%w: nil detour for %s", ErrSignature, target)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[target]
	if !ok || isNilFunc(s.original) {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, target)
	}
	if s.active != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHooked, target)
	}

	h := &tableHandle{
		id:       t.seq.Add(1),
		target:   target,
		original: s.original,
	}
	s.active = h
	s.current.Store(fn)
	return h, nil
}

// Uninstall implements Engine.
func (t *Table) Uninstall(h Handle) error {
	th, ok := h.(*tableHandle)
	if !ok || th == nil {
		return fmt.Errorf("hook: foreign handle %T", h)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[th.target]
	if !ok || s.active != th {
		// Already removed.
		return nil
	}
	s.active = nil
	s.current.Store(s.original)
	return nil
}

// Hooked reports whether a detour is installed over target.
func (t *Table) Hooked(target Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[target]
	return ok && s.active != nil
}

// TickCount dispatches to the current TickCount function.
func (t *Table) TickCount() uint32 {
	return t.slots[TickCount].current.Load().(TickCountFunc)()
}

// TickCount64 dispatches to the current TickCount64 function.
func (t *Table) TickCount64() uint64 {
	return t.slots[TickCount64].current.Load().(TickCount64Func)()
}

// QueryPerformanceCounter dispatches to the current PerformanceCounter
// function.
func (t *Table) QueryPerformanceCounter(counter *int64) bool {
	return t.slots[PerformanceCounter].current.Load().(PerformanceCounterFunc)(counter)
}

func isNilFunc(fn any) bool {
	switch f := fn.(type) {
	case TickCountFunc:
		return f == nil
	case TickCount64Func:
		return f == nil
	case PerformanceCounterFunc:
		return f == nil
	}
	return fn == nil
}
