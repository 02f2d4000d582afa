// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

type Config struct {
	// Generation
	GenerationTimeout   time.Duration // bound on each gateway call
	RateLimitRetryAfter time.Duration // hint returned with RATE_LIMITED
	MaxMessageRunes     int

	// Per-chat lease
	LeaseTTL  time.Duration
	LeaseWait time.Duration

	// Sharing
	ShareBaseURL    string
	ShareTTL        time.Duration
	ShareTokenBytes int
	ShareAttempts   int
	SweepMode       string

	// History
	DefaultPageSize int
	MaxPageSize     int
}

func (c *Config) Validate() error {
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}
	if c.MaxMessageRunes <= 0 {
		return fmt.Errorf("max message runes must be positive")
	}
	if c.LeaseTTL <= 0 || c.LeaseWait < 0 {
		return fmt.Errorf("invalid lease timing")
	}
	// A send holds the lease across the reply and title calls.
	if c.LeaseTTL <= 2*c.GenerationTimeout {
		return fmt.Errorf("lease ttl %s must exceed twice the generation timeout %s", c.LeaseTTL, c.GenerationTimeout)
	}
	if c.ShareTTL <= 0 {
		return fmt.Errorf("share ttl must be positive")
	}
	if c.ShareTokenBytes < 16 {
		return fmt.Errorf("share tokens need at least 16 random bytes")
	}
	if c.ShareAttempts < 1 {
		return fmt.Errorf("share attempts must be at least 1")
	}
	if c.SweepMode != SweepDelete && c.SweepMode != SweepRevoke {
		return fmt.Errorf("unknown sweep mode %q", c.SweepMode)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page sizes")
	}
	return nil
}

const (
	SweepDelete = "delete"
	SweepRevoke = "revoke"
)

func DefaultConfig() *Config {
	return &Config{
		GenerationTimeout:   60 * time.Second,
		RateLimitRetryAfter: 25 * time.Second,
		MaxMessageRunes:     32000,
		LeaseTTL:            3 * time.Minute,
		LeaseWait:           5 * time.Second,
		ShareBaseURL:        "http://localhost:8080",
		ShareTTL:            30 * 24 * time.Hour,
		ShareTokenBytes:     16,
		ShareAttempts:       3,
		SweepMode:           SweepDelete,
		DefaultPageSize:     20,
		MaxPageSize:         100,
	}
}
