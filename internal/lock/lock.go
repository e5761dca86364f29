// Package lock implements the distributed mutual-exclusion primitive used
// to serialize access to shared keys. It builds on the coordination store's
// atomic set-if-absent; the TTL is the ultimate safety net against deadlock
// from a crashed holder.
package lock

import (
	"context"
	"log/slog"
	"time"

	"torniket/internal/cache"
	apperrors "torniket/internal/errors"
)

// Config controls the retry behavior of AcquireWithRetry.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Locker acquires and releases TTL-bounded locks in the coordination store.
type Locker struct {
	store       cache.Store
	maxAttempts int
	backoffBase time.Duration
}

func New(store cache.Store, cfg Config) *Locker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	return &Locker{
		store:       store,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
	}
}

// Acquire performs a single atomic create-with-TTL attempt. It returns true
// only if this caller created the key. Store communication failures are
// treated as a failed acquisition (fail-closed), never surfaced as errors.
func (l *Locker) Acquire(ctx context.Context, key, holderID string, ttl time.Duration) bool {
	ok, err := l.store.SetNX(ctx, key, holderID, ttl)
	if err != nil {
		slog.Error("Lock acquisition failed on store error", "key", key, "error", err)
		return false
	}
	return ok
}

// AcquireWithRetry calls Acquire up to the configured attempt count,
// sleeping backoffBase*attempt between attempts to spread out contending
// callers. It returns false, not an error, when all attempts fail or the
// context is cancelled while waiting.
func (l *Locker) AcquireWithRetry(ctx context.Context, key, holderID string, ttl time.Duration) bool {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if l.Acquire(ctx, key, holderID, ttl) {
			return true
		}

		if attempt < l.maxAttempts {
			select {
			case <-time.After(l.backoffBase * time.Duration(attempt)):
			case <-ctx.Done():
				return false
			}
		}
	}
	return false
}

// Release deletes the key only while it still holds holderID, so a caller
// whose lock has expired and been re-acquired by someone else cannot delete
// the new holder's lock. Best effort: the TTL reclaims the key if this
// fails.
func (l *Locker) Release(ctx context.Context, key, holderID string) {
	released, err := l.store.DelIfEquals(ctx, key, holderID)
	if err != nil {
		slog.Error("Lock release failed", "key", key, "error", err)
		return
	}
	if !released {
		slog.Warn("Lock not released: no longer held by caller", "key", key, "holder", holderID)
	}
}

// WithLock runs fn inside the lock's critical section. It returns ErrBusy
// when the lock cannot be obtained after retries; release happens on every
// path.
func (l *Locker) WithLock(ctx context.Context, key, holderID string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if !l.AcquireWithRetry(ctx, key, holderID, ttl) {
		return apperrors.ErrBusy
	}
	defer l.Release(ctx, key, holderID)

	return fn(ctx)
}
