package pagination

import "sync"

// Guard is a single-flight gate. It admits one operation at a time and,
// once closed, none at all.
//
// The zero value is an open, idle guard.
type Guard struct {
	mu       sync.Mutex
	inFlight bool
	closed   bool
}

// TryAcquire admits an operation. It returns false without changing state
// while another operation is in flight or the guard is closed.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tryAcquireLocked()
}

// Release ends the operation admitted by TryAcquire.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
}

// Abort closes the guard for good. An operation already in flight still
// ends with Release.
func (g *Guard) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// InFlight reports whether an operation is outstanding.
func (g *Guard) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Closed reports whether the guard refuses all operations.
func (g *Guard) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Guard) tryAcquireLocked() bool {
	if g.inFlight || g.closed {
		return false
	}
	g.inFlight = true
	return true
}
