package platform

import (
	"fmt"
	"sync"
)

// Console tracks whether the process has a console allocated and switches it
// on or off on request.
type Console struct {
	mu    sync.Mutex
	open  bool
	alloc func() error
	free  func() error
}

// NewConsole returns a Console backed by the system console API.
func NewConsole() *Console {
	return newConsole(allocConsole, freeConsole)
}

func newConsole(alloc, free func() error) *Console {
	return &Console{alloc: alloc, free: free}
}

// Open reports whether a console is currently allocated.
func (c *Console) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Set allocates the console when on is true and frees it otherwise. Setting
// the current state again does nothing.
func (c *Console) Set(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on == c.open {
		return nil
	}
	if on {
		if err := c.alloc(); err != nil {
			return fmt.Errorf("allocate console: %w", err)
		}
	} else {
		if err := c.free(); err != nil {
			return fmt.Errorf("free console: %w", err)
		}
	}
	c.open = on
	return nil
}
