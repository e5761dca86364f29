package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"torniket/internal/cache/cachetest"
	apperrors "torniket/internal/errors"
)

func newTestLocker(store *cachetest.Store) *Locker {
	return New(store, Config{MaxAttempts: 3, BackoffBase: 5 * time.Millisecond})
}

func TestAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	assert.True(t, locker.Acquire(ctx, "lock:seat:1:5", "u1", time.Minute))
	assert.False(t, locker.Acquire(ctx, "lock:seat:1:5", "u2", time.Minute))

	locker.Release(ctx, "lock:seat:1:5", "u1")
	assert.True(t, locker.Acquire(ctx, "lock:seat:1:5", "u2", time.Minute))
}

func TestReleaseIsOwnershipChecked(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))

	// Releasing with the wrong holder must not delete the lock.
	locker.Release(ctx, "lock:queue", "u2")
	assert.False(t, locker.Acquire(ctx, "lock:queue", "u3", time.Minute))

	locker.Release(ctx, "lock:queue", "u1")
	assert.True(t, locker.Acquire(ctx, "lock:queue", "u3", time.Minute))
}

func TestAcquireFailsClosedOnStoreError(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	store.FailWith(errors.New("connection refused"))
	assert.False(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))

	store.FailWith(nil)
	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))
}

func TestAcquireWithRetryEventuallySucceeds(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	// Contending lock expires between the first and last attempt.
	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", 8*time.Millisecond))
	assert.True(t, locker.AcquireWithRetry(ctx, "lock:queue", "u2", time.Minute))
}

func TestAcquireWithRetryGivesUp(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))
	assert.False(t, locker.AcquireWithRetry(ctx, "lock:queue", "u2", time.Minute))
}

func TestAcquireWithRetryHonorsContextCancellation(t *testing.T) {
	store := cachetest.New()
	locker := New(store, Config{MaxAttempts: 10, BackoffBase: 50 * time.Millisecond})

	ctx := context.Background()
	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.False(t, locker.AcquireWithRetry(cancelCtx, "lock:queue", "u2", time.Minute))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWithLockReleasesOnError(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	bodyErr := errors.New("boom")
	err := locker.WithLock(ctx, "lock:queue", "u1", time.Minute, func(ctx context.Context) error {
		return bodyErr
	})
	assert.ErrorIs(t, err, bodyErr)

	// The lock must be free again even though the body failed.
	assert.True(t, locker.Acquire(ctx, "lock:queue", "u2", time.Minute))
}

func TestWithLockReturnsBusyWhenHeld(t *testing.T) {
	ctx := context.Background()
	store := cachetest.New()
	locker := newTestLocker(store)

	assert.True(t, locker.Acquire(ctx, "lock:queue", "u1", time.Minute))

	called := false
	err := locker.WithLock(ctx, "lock:queue", "u2", time.Minute, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrBusy)
	assert.False(t, called)
}
