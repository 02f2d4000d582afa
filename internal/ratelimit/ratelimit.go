// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // Window the budget refills over
	MaxRequests   int           // Requests allowed per window
	CleanupPeriod time.Duration // How often idle keys are dropped
}

// DefaultSendConfig is the budget for message sends: 100 per 15 minutes.
func DefaultSendConfig() *Config {
	return &Config{
		WindowSize:    15 * time.Minute,
		MaxRequests:   100,
		CleanupPeriod: 30 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per key. A full bucket holds
// MaxRequests tokens and refills completely over WindowSize.
type MemoryRateLimiter struct {
	config  *Config
	limit   rate.Limit
	entries map[string]*entry
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewMemoryRateLimiter creates a limiter and starts its cleanup loop.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	rl := newLimiter(config, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newLimiter(config *Config, now func() time.Time) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		config:  config,
		limit:   rate.Every(config.WindowSize / time.Duration(config.MaxRequests)),
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		now:     now,
	}
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow spends one token for identifier if one is available.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[identifier]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.config.MaxRequests)}
		rl.entries[identifier] = e
	}
	e.lastSeen = now

	info := &RateLimitInfo{Limit: rl.config.MaxRequests}
	if e.limiter.AllowN(now, 1) {
		info.Allowed = true
		info.Remaining = int(e.limiter.TokensAt(now))
		return true, info
	}

	r := e.limiter.ReserveN(now, 1)
	info.RetryAfter = r.DelayFrom(now)
	r.CancelAt(now)
	return false, info
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops keys idle for longer than a full window; their buckets are full again.
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.config.WindowSize {
			delete(rl.entries, id)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func parseFirstIP(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
