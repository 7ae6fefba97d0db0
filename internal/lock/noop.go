package lock

import (
	"context"
	"time"
)

// NoOpLocker satisfies Locker without any actual locking. Every acquire
// succeeds immediately, so multipart assembly and object writes run
// unserialized. Intended for tests and single-writer tooling.
type NoOpLocker struct{}

// NewNoOpLocker returns a locker whose operations all succeed.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire reports the lock as acquired without holding anything.
func (n *NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// AcquireWithRetry succeeds on the first attempt; the retry parameters
// are ignored.
func (n *NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return true, ctx.Err()
}

// Release reports the lock as released.
func (n *NoOpLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

// Extend reports the lock as extended.
func (n *NoOpLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// IsHeld always reports false; nothing is ever held.
func (n *NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = (*NoOpLocker)(nil)
