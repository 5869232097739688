//go:build windows

package notify

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// MessageBoxNotifier shows errors in a modal message box.
type MessageBoxNotifier struct {
	owner  atomic.Uintptr
	logger *slog.Logger
}

func newPlatformNotifier(logger *slog.Logger) Notifier {
	return &MessageBoxNotifier{logger: logger}
}

// SetOwner parents future message boxes to window.
func (n *MessageBoxNotifier) SetOwner(window uintptr) {
	n.owner.Store(window)
}

// ShowError implements Notifier. It blocks until the box is dismissed.
func (n *MessageBoxNotifier) ShowError(title, message string) error {
	n.logger.Error(title, "message", message)

	text, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	caption, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return fmt.Errorf("encode title: %w", err)
	}

	flags := uint32(windows.MB_OK | windows.MB_ICONERROR | windows.MB_SETFOREGROUND)
	if _, err := windows.MessageBox(windows.HWND(n.owner.Load()), text, caption, flags); err != nil {
		return fmt.Errorf("message box: %w", err)
	}
	return nil
}
