//go:build windows

package keyboard

import (
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// asyncSampler polls GetAsyncKeyState. The most significant bit of the
// result is set while the key is held.
type asyncSampler struct{}

func newPlatformSampler() Sampler {
	return asyncSampler{}
}

func (asyncSampler) IsDown(k Key) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(k))
	return uint16(r)&0x8000 != 0
}

func (asyncSampler) Available() (bool, string) {
	if err := procGetAsyncKeyState.Find(); err != nil {
		return false, "GetAsyncKeyState unavailable: " + err.Error()
	}
	return true, "GetAsyncKeyState"
}
