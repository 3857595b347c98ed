package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	BurstMultiplier   int
}

// DefaultConfig returns default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		BurstMultiplier:   2,
	}
}

// Limiter provides per-IP token-bucket rate limiting. A single-process
// service needs no distributed state; idle buckets are dropped by a
// background sweep so the map cannot grow unbounded.
type Limiter struct {
	config   Config
	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a new per-IP limiter and starts its cleanup loop.
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		config:   config,
		limiters: make(map[string]*ipLimiter),
	}
	go l.cleanup()
	return l
}

// Allow reports whether the given IP may make a request now.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		perSecond := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
		burst := l.config.RequestsPerMinute * l.config.BurstMultiplier / 60
		if burst < 1 {
			burst = 1
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(perSecond, burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// cleanup drops buckets that have been idle for several minutes.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if time.Since(entry.lastSeen) > 10*time.Minute {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}
