package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireAndRelease(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := ml.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	held, err := ml.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.True(t, held)

	// A second acquire on a held key fails.
	acquired, err = ml.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	released, err := ml.Release(ctx, "k")
	require.NoError(t, err)
	require.True(t, released)

	held, err = ml.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.False(t, held)

	// Releasing an unheld key reports false without error.
	released, err = ml.Release(ctx, "k")
	require.NoError(t, err)
	require.False(t, released)
}

func TestMemoryLocker_ExpiredLockIsReacquirable(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := ml.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	acquired, err = ml.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLocker_Extend(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	extended, err := ml.Extend(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, extended, "extending an unheld lock")

	acquired, err := ml.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	extended, err = ml.Extend(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, extended)

	// The extension outlives the original TTL.
	time.Sleep(20 * time.Millisecond)
	held, err := ml.IsHeld(ctx, "k")
	require.NoError(t, err)
	require.True(t, held)
}

func TestMemoryLocker_AcquireWithRetry(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := ml.Acquire(ctx, "k", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	// Retries outlast the holder's TTL.
	acquired, err = ml.AcquireWithRetry(ctx, "k", time.Minute, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLocker_AcquireWithRetryGivesUp(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := ml.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = ml.AcquireWithRetry(ctx, "k", time.Minute, 2, time.Millisecond)
	require.NoError(t, err)
	require.False(t, acquired)
}

func TestMemoryLocker_CancelledContext(t *testing.T) {
	ml := NewMemoryLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ml.Acquire(ctx, "k", time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	_, err = ml.Release(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLockWrapper(t *testing.T) {
	ml := NewMemoryLocker()
	ctx := context.Background()

	l := NewLock(ml, Keys.Bucket("photos"))
	require.False(t, l.IsHeld())

	acquired, err := l.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	require.True(t, l.IsHeld())

	other := NewLock(ml, Keys.Bucket("photos"))
	acquired, err = other.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	require.NoError(t, l.Release(ctx))
	require.False(t, l.IsHeld())

	acquired, err = other.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestKeys(t *testing.T) {
	require.Equal(t, "lock:multipart:abc", Keys.MultipartUpload("abc"))
	require.Equal(t, "lock:object:write:bkt/a/b.txt", Keys.ObjectWrite("bkt", "a/b.txt"))
	require.Equal(t, "lock:bucket:bkt", Keys.Bucket("bkt"))
}
