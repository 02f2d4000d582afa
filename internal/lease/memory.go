package lease

import (
	"context"
	"sync"
	"time"
)

type heldLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker serves a single process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]heldLease
	now  func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]heldLease), now: time.Now}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error) {
	token := newToken()
	err := acquireLoop(ctx, wait, func() (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		now := m.now()
		if cur, ok := m.held[key]; ok && now.Before(cur.expiresAt) {
			return false, nil
		}
		m.held[key] = heldLease{token: token, expiresAt: now.Add(ttl)}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &memoryLease{locker: m, key: key, token: token}, nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  string
}

// Release is a no-op if the lease expired and was taken by someone else.
func (l *memoryLease) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if cur, ok := l.locker.held[l.key]; ok && cur.token == l.token {
		delete(l.locker.held, l.key)
	}
	return nil
}
