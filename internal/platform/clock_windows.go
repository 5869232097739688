//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                      = windows.NewLazySystemDLL("kernel32.dll")
	procGetTickCount              = kernel32.NewProc("GetTickCount")
	procGetTickCount64            = kernel32.NewProc("GetTickCount64")
	procQueryPerformanceCounter   = kernel32.NewProc("QueryPerformanceCounter")
	procQueryPerformanceFrequency = kernel32.NewProc("QueryPerformanceFrequency")
)

type systemClock struct{}

func newSystemClock() Clock { return systemClock{} }

func (systemClock) TickCount() uint32 {
	r, _, _ := procGetTickCount.Call()
	return uint32(r)
}

func (systemClock) TickCount64() uint64 {
	lo, hi, _ := procGetTickCount64.Call()
	if unsafe.Sizeof(uintptr(0)) == 4 {
		// 32-bit: the result comes back in EDX:EAX.
		return uint64(lo) | uint64(hi)<<32
	}
	return uint64(lo)
}

func (systemClock) PerformanceCounter(counter *int64) bool {
	r, _, _ := procQueryPerformanceCounter.Call(uintptr(unsafe.Pointer(counter)))
	return r != 0
}

func (systemClock) PerformanceFrequency() int64 {
	var freq int64
	r, _, _ := procQueryPerformanceFrequency.Call(uintptr(unsafe.Pointer(&freq)))
	if r == 0 {
		return 0
	}
	return freq
}
