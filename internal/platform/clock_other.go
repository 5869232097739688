//go:build !unix && !windows

package platform

import "time"

const counterFrequency = 10_000_000

// Readings count from process start.
var epoch = time.Now()

type systemClock struct{}

func newSystemClock() Clock { return systemClock{} }

func (systemClock) TickCount() uint32 {
	return uint32(time.Since(epoch).Milliseconds())
}

func (systemClock) TickCount64() uint64 {
	return uint64(time.Since(epoch).Milliseconds())
}

func (systemClock) PerformanceCounter(counter *int64) bool {
	*counter = time.Since(epoch).Nanoseconds() / (1e9 / counterFrequency)
	return true
}

func (systemClock) PerformanceFrequency() int64 { return counterFrequency }
