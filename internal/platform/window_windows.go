//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procGetWindow = user32.NewProc("GetWindow")
)

const gwOwner = 4

// mainWindowSearch is passed through EnumWindows' lParam.
type mainWindowSearch struct {
	pid    uint32
	window windows.HWND
}

var enumMainWindow = windows.NewCallback(func(hwnd windows.HWND, lparam uintptr) uintptr {
	s := (*mainWindowSearch)(unsafe.Pointer(lparam))
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != s.pid {
		return 1
	}
	if !windows.IsWindowVisible(hwnd) {
		return 1
	}
	if owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner); owner != 0 {
		return 1
	}
	s.window = hwnd
	return 0
})

func findMainWindow() (Window, error) {
	s := &mainWindowSearch{pid: windows.GetCurrentProcessId()}
	// EnumWindows reports an error when the callback stops the enumeration.
	_ = windows.EnumWindows(enumMainWindow, unsafe.Pointer(s))
	if s.window == 0 {
		return 0, ErrNoWindow
	}
	return Window(s.window), nil
}

func foregroundWindow() Window {
	return Window(windows.GetForegroundWindow())
}
