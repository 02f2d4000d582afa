// Package lease provides short-lived per-key mutual exclusion so only one
// append runs against a chat at a time.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("lease not acquired")

// Locker hands out exclusive leases on keys. A lease expires after ttl even if
// never released, so a crashed holder cannot block a chat forever.
type Locker interface {
	// Acquire polls until the key is free or wait elapses, then returns
	// ErrNotAcquired.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

const pollInterval = 25 * time.Millisecond

// acquireLoop retries try until it succeeds, wait elapses or ctx ends.
func acquireLoop(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func newToken() string {
	return uuid.NewString()
}
