package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torniket/internal/cache"
	"torniket/internal/cache/cachetest"
	"torniket/internal/config"
	apperrors "torniket/internal/errors"
	"torniket/internal/lock"
	"torniket/internal/models"
)

func newTestQueueService(maxActive int) (*QueueService, *cachetest.Store) {
	store := cachetest.New()
	locker := lock.New(store, lock.Config{MaxAttempts: 3, BackoffBase: time.Millisecond})
	cfg := config.QueueConfig{
		MaxActiveUsers:  maxActive,
		TokenTTL:        time.Minute,
		WaitTimePerUser: time.Minute,
		LockTTL:         time.Second,
	}
	return NewQueueService(store, locker, cfg, nil), store
}

func TestIssueTokenAdmitsUpToCapacity(t *testing.T) {
	svc, _ := newTestQueueService(2)
	ctx := context.Background()

	t1, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TokenActive, t1.Status)

	t2, err := svc.IssueToken(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, models.TokenActive, t2.Status)

	t3, err := svc.IssueToken(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, models.TokenWaiting, t3.Status)
	assert.Equal(t, int64(1), t3.Position)
	assert.Equal(t, 1, t3.EstimatedWaitMinutes)
}

func TestIssueTokenReclaimsLapsedAdmissions(t *testing.T) {
	svc, store := newTestQueueService(1)
	ctx := context.Background()

	t1, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, models.TokenActive, t1.Status)

	// u1's marker lapses before any sweep runs; the next arrival gets the
	// freed slot immediately instead of waiting on the promotion job.
	require.NoError(t, store.Del(ctx, cache.ActiveUserMarkerKey("u1")))

	t2, err := svc.IssueToken(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, models.TokenActive, t2.Status)
	assert.Equal(t, int64(0), t2.Position)
}

func TestIssueTokenIsIdempotent(t *testing.T) {
	svc, _ := newTestQueueService(2)
	ctx := context.Background()

	first, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	second, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, models.TokenActive, second.Status)
}

func TestWaitingLineIsOrdered(t *testing.T) {
	svc, _ := newTestQueueService(1)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	for i, userID := range []string{"u2", "u3", "u4"} {
		token, err := svc.IssueToken(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, models.TokenWaiting, token.Status)
		assert.Equal(t, int64(i+1), token.Position)
	}
}

func TestGetStatusUnknownToken(t *testing.T) {
	svc, _ := newTestQueueService(1)

	_, err := svc.GetStatus(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPromoteFillsFreedSlots(t *testing.T) {
	svc, store := newTestQueueService(2)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.IssueToken(ctx, "u2")
	require.NoError(t, err)

	t3, err := svc.IssueToken(ctx, "u3")
	require.NoError(t, err)
	t4, err := svc.IssueToken(ctx, "u4")
	require.NoError(t, err)
	require.Equal(t, models.TokenWaiting, t3.Status)
	require.Equal(t, models.TokenWaiting, t4.Status)

	// u1's marker lapses; the sweep reclaims the slot and promotes u3 first.
	require.NoError(t, store.Del(ctx, cache.ActiveUserMarkerKey("u1")))

	promoted, err := svc.PromoteWaiting(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	status3, err := svc.GetStatus(ctx, t3.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenActive, status3.Status)
	assert.Equal(t, int64(0), status3.Position)

	status4, err := svc.GetStatus(ctx, t4.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenWaiting, status4.Status)
	assert.Equal(t, int64(1), status4.Position)
}

func TestPromoteWaitingSkipsWhenLockHeld(t *testing.T) {
	svc, store := newTestQueueService(1)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.IssueToken(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, store.Del(ctx, cache.ActiveUserMarkerKey("u1")))
	require.NoError(t, store.Set(ctx, cache.QueueLockKey(), "another-sweeper", time.Minute))

	promoted, err := svc.PromoteWaiting(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)
}

func TestPromoteDropsVanishedTokens(t *testing.T) {
	svc, store := newTestQueueService(1)
	ctx := context.Background()

	_, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	t2, err := svc.IssueToken(ctx, "u2")
	require.NoError(t, err)

	// u2's token lapses while waiting, then u1's slot frees up.
	require.NoError(t, store.Del(ctx, cache.QueueTokenKey(t2.Token)))
	require.NoError(t, store.Del(ctx, cache.ActiveUserMarkerKey("u1")))

	promoted, err := svc.PromoteWaiting(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	// The line entry is gone, not stuck at the front forever.
	members, err := store.ZRange(ctx, cache.WaitingQueueKey(), 0, -1)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestValidateActiveToken(t *testing.T) {
	svc, store := newTestQueueService(1)
	ctx := context.Background()

	active, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	waiting, err := svc.IssueToken(ctx, "u2")
	require.NoError(t, err)

	got, err := svc.ValidateActiveToken(ctx, active.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = svc.ValidateActiveToken(ctx, waiting.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.ValidateActiveToken(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Store failures deny access instead of admitting blindly.
	store.FailWith(errors.New("connection refused"))
	_, err = svc.ValidateActiveToken(ctx, active.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestIssueTokenBusyWhenLockUnavailable(t *testing.T) {
	svc, store := newTestQueueService(1)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, cache.QueueLockKey(), "someone-else", time.Minute))

	_, err := svc.IssueToken(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrBusy)
}
