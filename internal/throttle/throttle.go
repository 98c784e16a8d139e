// Package throttle deduplicates repeated click classifications within a fixed
// time window so a double-click emits a single event.
package throttle

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum time between two transmissions of the same
// (type, url) pair.
const DefaultWindow = 5 * time.Second

// Guard records emission times per (click type, click url) key. Entries are
// never evicted: the key space is bounded by the distinct targets a visitor
// can click during the guard's lifetime.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewGuard builds a guard with the given suppression window. A zero window
// falls back to DefaultWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// NewGuardWithClock builds a guard with an injectable clock for tests.
func NewGuardWithClock(window time.Duration, now func() time.Time) *Guard {
	g := NewGuard(window)
	g.now = now
	return g
}

// ShouldSuppress reports whether an emission keyed by clickType and clickURL
// falls inside the suppression window. When it does not, the current time is
// recorded so the next call within the window is suppressed.
func (g *Guard) ShouldSuppress(clickType, clickURL string) bool {
	key := clickType + "|" + clickURL

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.seen[key]; ok && now.Sub(last) < g.window {
		return true
	}
	g.seen[key] = now
	return false
}
