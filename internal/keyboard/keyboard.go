// Package keyboard classifies held keys into per-tick edges.
//
// A Tracker polls a Sampler for "is this key held right now" and compares
// the answer against what it saw on the previous frame:
//
//	not held -> held      Pressed (one frame)
//	held     -> held      Down
//	held     -> not held  Released (one frame)
//	not held -> not held  Up
//
// Transitions are staged and only committed by EndFrame, so every query made
// within one frame sees the same classification.
package keyboard

import (
	"errors"
	"fmt"
)

// Key is a virtual-key code.
type Key uint16

// NumKeys is the size of the key table. Valid keys are 0 through NumKeys-1.
const NumKeys = 256

// ErrKeyOutOfRange is returned for keys that do not fit the key table.
var ErrKeyOutOfRange = errors.New("keyboard: key code out of range")

// Valid reports whether k fits the key table.
func (k Key) Valid() bool {
	return k < NumKeys
}

// State is the classification of a key for the current frame.
type State uint8

const (
	Up State = iota
	Pressed
	Down
	Released
)

func (s State) String() string {
	switch s {
	case Up:
		return "up"
	case Pressed:
		return "pressed"
	case Down:
		return "down"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Held reports whether the key is held in this state.
func (s State) Held() bool {
	return s == Pressed || s == Down
}

// Sampler reports the raw, level-triggered key state from the platform.
type Sampler interface {
	// IsDown reports whether k is currently held.
	IsDown(k Key) bool

	// Available reports whether sampling works on this platform, with a
	// description.
	Available() (bool, string)
}

// NewSampler returns the platform key sampler.
func NewSampler() Sampler {
	return newPlatformSampler()
}

// Tracker is the per-key edge detector. It is not safe for concurrent use;
// one goroutine owns it.
type Tracker struct {
	sampler Sampler

	held [NumKeys]bool // committed at the last EndFrame
	next [NumKeys]bool // staged for the next frame

	sampled [NumKeys]bool // raw sample taken this frame
	raw     [NumKeys]bool
}

// NewTracker creates a Tracker with every key up.
func NewTracker(s Sampler) *Tracker {
	return &Tracker{sampler: s}
}

// State classifies k for this frame. Keys outside the table are always Up.
func (t *Tracker) State(k Key) State {
	if !k.Valid() {
		return Up
	}
	now := t.sample(k)
	was := t.held[k]
	switch {
	case now && !was:
		t.next[k] = true
		return Pressed
	case !now && was:
		t.next[k] = false
		return Released
	case now:
		return Down
	default:
		return Up
	}
}

func (t *Tracker) sample(k Key) bool {
	if !t.sampled[k] {
		t.raw[k] = t.sampler.IsDown(k)
		t.sampled[k] = true
	}
	return t.raw[k]
}

// SampleAll classifies every key in keys.
func (t *Tracker) SampleAll(keys []Key) []State {
	states := make([]State, len(keys))
	for i, k := range keys {
		states[i] = t.State(k)
	}
	return states
}

// AllPressed reports whether every key is held and at least one of them was
// pressed this frame. A chord held steady since the previous frame does not
// fire again. An empty chord never fires.
func (t *Tracker) AllPressed(keys []Key) bool {
	if len(keys) == 0 {
		return false
	}
	fresh := false
	for _, s := range t.SampleAll(keys) {
		if !s.Held() {
			return false
		}
		if s == Pressed {
			fresh = true
		}
	}
	return fresh
}

// AnyReleased reports whether any key was released this frame.
func (t *Tracker) AnyReleased(keys []Key) bool {
	released := false
	for _, s := range t.SampleAll(keys) {
		if s == Released {
			released = true
		}
	}
	return released
}

// EndFrame commits this frame's transitions.
func (t *Tracker) EndFrame() {
	t.held = t.next
	t.sampled = [NumKeys]bool{}
}
