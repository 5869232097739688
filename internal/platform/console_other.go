//go:build !windows

package platform

// The process output already goes to its terminal.
func allocConsole() error { return nil }

func freeConsole() error { return nil }
