// internal/bridge/scheduler.go
package bridge

import (
	"sync"
	"time"
)

// frameGate paces detect handling to one pass per display frame. Bursts of
// pointer positions between ticks collapse to the first one; the dropped
// coordinates are stale by the time the next frame renders anyway.
type frameGate struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newFrameGate() *frameGate {
	return &frameGate{now: time.Now}
}

// TryAcquire reports whether work may run in the current frame window. The
// first caller of a window wins; later callers are dropped until interval
// elapses.
func (g *frameGate) TryAcquire(interval time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < interval {
		return false
	}
	g.last = now
	return true
}

// Reset clears the window so the next acquire succeeds immediately.
// Deactivation resets the gate; a fresh session should not inherit the tail
// of the previous one's throttle.
func (g *frameGate) Reset() {
	g.mu.Lock()
	g.last = time.Time{}
	g.mu.Unlock()
}
