package webhook

import (
	"sync"
	"time"
)

// RateLimiter enforces a fixed per-source event budget over a sliding
// window. State is process-local; deployments behind multiple instances
// must externalize it.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	events map[string][]time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

// Allow records one event for the source and reports whether it fits the
// window budget. Timestamps older than the window are evicted first.
func (l *RateLimiter) Allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[source][:0]
	for _, ts := range l.events[source] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.events[source] = kept
		return false
	}
	l.events[source] = append(kept, now)
	return true
}

// SetNow overrides the clock; tests only.
func (l *RateLimiter) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
