package lease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_ExclusiveUntilReleased(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "chat-1", time.Minute, 0)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "chat-1", time.Minute, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Acquire(ctx, "chat-2", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	second, err := locker.Acquire(ctx, "chat-1", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestMemoryLocker_WaitsForRelease(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "chat-1", time.Minute, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	next, err := locker.Acquire(ctx, "chat-1", time.Minute, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, next.Release(ctx))
}

func TestMemoryLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	locker := NewMemoryLocker()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "chat-1", time.Second, 0)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := locker.Acquire(ctx, "chat-1", time.Minute, 0)
	require.NoError(t, err)

	// The stale holder must not release the new holder's lease.
	require.NoError(t, stale.Release(ctx))
	_, err = locker.Acquire(ctx, "chat-1", time.Minute, 0)
	assert.ErrorIs(t, err, ErrNotAcquired)
	require.NoError(t, fresh.Release(ctx))
}
