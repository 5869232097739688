//go:build unix

package platform

import "golang.org/x/sys/unix"

// counterFrequency matches the 10MHz QueryPerformanceCounter most Windows
// systems report.
const counterFrequency = 10_000_000

type systemClock struct{}

func newSystemClock() Clock { return systemClock{} }

func monotonic() (int64, bool) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, false
	}
	return ts.Nano(), true
}

func (systemClock) TickCount() uint32 {
	ns, _ := monotonic()
	return uint32(ns / 1e6)
}

func (systemClock) TickCount64() uint64 {
	ns, _ := monotonic()
	return uint64(ns / 1e6)
}

func (systemClock) PerformanceCounter(counter *int64) bool {
	ns, ok := monotonic()
	if !ok {
		return false
	}
	*counter = ns / (1e9 / counterFrequency)
	return true
}

func (systemClock) PerformanceFrequency() int64 { return counterFrequency }
