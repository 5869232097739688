//go:build windows

package platform

var (
	procAllocConsole = kernel32.NewProc("AllocConsole")
	procFreeConsole  = kernel32.NewProc("FreeConsole")
)

func allocConsole() error {
	if r, _, err := procAllocConsole.Call(); r == 0 {
		return err
	}
	return nil
}

func freeConsole() error {
	if r, _, err := procFreeConsole.Call(); r == 0 {
		return err
	}
	return nil
}
