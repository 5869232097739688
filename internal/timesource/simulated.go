package timesource

import (
	"sync/atomic"

	"timewarp/internal/hook"
)

// SimulatedClock is a manually advanced set of real time sources for tests
// and dry runs.
type SimulatedClock struct {
	tick    atomic.Uint32
	tick64  atomic.Uint64
	counter atomic.Int64

	// CounterPerMilli is the number of performance counter units per
	// millisecond.
	CounterPerMilli int64
}

// NewSimulatedClock returns a clock reading tick for both tick counters and
// counter for the performance counter, advancing the performance counter by
// 10000 units per millisecond.
func NewSimulatedClock(tick uint32, tick64 uint64, counter int64) *SimulatedClock {
	c := &SimulatedClock{CounterPerMilli: 10000}
	c.tick.Store(tick)
	c.tick64.Store(tick64)
	c.counter.Store(counter)
	return c
}

// Advance moves every source forward by ms milliseconds.
func (c *SimulatedClock) Advance(ms uint32) {
	c.tick.Add(ms)
	c.tick64.Add(uint64(ms))
	c.counter.Add(int64(ms) * c.CounterPerMilli)
}

// TickCount returns the simulated 32-bit tick count.
func (c *SimulatedClock) TickCount() uint32 { return c.tick.Load() }

// TickCount64 returns the simulated 64-bit tick count.
func (c *SimulatedClock) TickCount64() uint64 { return c.tick64.Load() }

// PerformanceCounter writes the simulated counter.
func (c *SimulatedClock) PerformanceCounter(counter *int64) bool {
	*counter = c.counter.Load()
	return true
}

// Table returns a hook.Table whose originals read this clock.
func (c *SimulatedClock) Table() *hook.Table {
	return hook.NewTable(c.TickCount, c.TickCount64, c.PerformanceCounter)
}
