package server

import (
	"sync"
	"time"
)

// ipLimiter tracks message timestamps per client IP using a sliding
// window. A single limiter covers all connections from an address so
// opening extra sockets does not raise the budget.
type ipLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*ipEntry
}

type ipEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

func newIPLimiter(max int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*ipEntry),
	}
}

// allow checks if a message from the IP is allowed and records the
// timestamp if so.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.entries[ip]
	if !ok {
		e = &ipEntry{}
		l.entries[ip] = e
	}
	e.lastSeen = now

	cutoff := now.Add(-l.window)
	valid := e.timestamps[:0]
	for _, t := range e.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	e.timestamps = valid

	if len(e.timestamps) >= l.max {
		return false
	}
	e.timestamps = append(e.timestamps, now)
	return true
}

// purge drops entries idle longer than the TTL.
func (l *ipLimiter) purge(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}
