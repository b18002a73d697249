package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-IP token bucket rate limiter for the HTTP API. It tracks
// each caller by IP address and automatically cleans up stale entries.
type Limiter struct {
	callers map[string]*caller
	mu      sync.RWMutex
	rps     rate.Limit
	burst   int
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a per-IP rate limiter that allows rps requests per
// second with the given burst size. It starts a background goroutine that
// removes callers not seen for 5 or more minutes, running every 3 minutes.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{
		callers: make(map[string]*caller),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go l.cleanup()
	return l
}

// Allow reports whether a request from the given IP address should be
// permitted, creating a new token bucket for the IP if needed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	c, exists := l.callers[ip]
	if !exists {
		c = &caller{
			limiter: rate.NewLimiter(l.rps, l.burst),
		}
		l.callers[ip] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

func (l *Limiter) cleanup() {
	for {
		time.Sleep(3 * time.Minute)

		l.mu.Lock()
		for ip, c := range l.callers {
			if time.Since(c.lastSeen) >= 5*time.Minute {
				delete(l.callers, ip)
			}
		}
		l.mu.Unlock()
	}
}
