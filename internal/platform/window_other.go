//go:build !windows

package platform

func findMainWindow() (Window, error) {
	return 0, ErrUnsupported
}

func foregroundWindow() Window { return 0 }
