package attach

import "sync/atomic"

// Guard admits one attach at a time.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the guard if it is free.
func (g *Guard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *Guard) Release() {
	g.held.Store(false)
}

// Held reports whether the guard is taken.
func (g *Guard) Held() bool {
	return g.held.Load()
}

// processGuard is shared by every Attach that does not bring its own.
var processGuard Guard
