package gate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const attemptIdleTimeout = 10 * time.Minute

type attemptEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// attemptLimiter keeps one token bucket per client key. Idle buckets are
// dropped on access once they have been unused for attemptIdleTimeout.
type attemptLimiter struct {
	mu        sync.Mutex
	entries   map[string]*attemptEntry
	perMinute int
	clock     func() time.Time
}

func newAttemptLimiter(perMinute int, clock func() time.Time) *attemptLimiter {
	return &attemptLimiter{
		entries:   make(map[string]*attemptEntry),
		perMinute: perMinute,
		clock:     clock,
	}
}

func (l *attemptLimiter) allow(key string) bool {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdle(now)
	entry, ok := l.entries[key]
	if !ok {
		entry = &attemptEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.entries[key] = entry
	}
	entry.lastUsed = now
	return entry.limiter.AllowN(now, 1)
}

func (l *attemptLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-attemptIdleTimeout)
	for key, entry := range l.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *attemptLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
