package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"torniket/internal/cache"
	"torniket/internal/config"
	apperrors "torniket/internal/errors"
	"torniket/internal/lock"
	"torniket/internal/metrics"
	"torniket/internal/models"

	"github.com/google/uuid"
)

// QueueService управляет очередью допуска: выдача токенов, продвижение
// ожидающих, проверка допуска
type QueueService struct {
	store     cache.Store
	locker    *lock.Locker
	cfg       config.QueueConfig
	publisher Publisher
}

func NewQueueService(store cache.Store, locker *lock.Locker, cfg config.QueueConfig, publisher Publisher) *QueueService {
	return &QueueService{
		store:     store,
		locker:    locker,
		cfg:       cfg,
		publisher: publisher,
	}
}

// IssueToken returns the user's current unexpired token, or issues a new one.
// Admission versus enqueueing is decided under the admission lock, after
// reclaiming lapsed admissions, so the admitted count is recounted against
// live markers and can never exceed the cap.
func (s *QueueService) IssueToken(ctx context.Context, userID string) (*models.QueueToken, error) {
	if existing, err := s.findExistingToken(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	var token *models.QueueToken
	err := s.locker.WithLock(ctx, cache.QueueLockKey(), uuid.New().String(), s.cfg.LockTTL, func(ctx context.Context) error {
		if err := s.reconcileAdmitted(ctx); err != nil {
			return err
		}

		activeCount, err := s.store.SCard(ctx, cache.ActiveUsersKey())
		if err != nil {
			return fmt.Errorf("failed to count admitted users: %w", err)
		}

		if activeCount < int64(s.cfg.MaxActiveUsers) {
			token, err = s.admitUser(ctx, userID)
		} else {
			token, err = s.enqueueUser(ctx, userID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(string(token.Status)).Inc()
	return token, nil
}

// findExistingToken loads the user's current token if one is still live.
// WAITING tokens come back with a freshly computed rank.
func (s *QueueService) findExistingToken(ctx context.Context, userID string) (*models.QueueToken, error) {
	tokenID, found, err := s.store.Get(ctx, cache.UserTokenKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user token: %w", err)
	}
	if !found {
		return nil, nil
	}

	token, err := s.loadToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil || token.IsExpired() {
		return nil, nil
	}

	if token.Status == models.TokenWaiting {
		if err := s.refreshWaitingPosition(ctx, token); err != nil {
			return nil, err
		}
	}

	return token, nil
}

// admitUser grants an ACTIVE token. The membership entry and the marker are
// rolled back if the token itself cannot be persisted, so the admitted set
// never counts a user who holds no token.
func (s *QueueService) admitUser(ctx context.Context, userID string) (*models.QueueToken, error) {
	token := models.NewQueueToken(userID, models.TokenActive, 0, 0, s.cfg.TokenTTL)

	if err := s.store.SAdd(ctx, cache.ActiveUsersKey(), userID); err != nil {
		return nil, fmt.Errorf("failed to add admitted user: %w", err)
	}
	if err := s.store.Set(ctx, cache.ActiveUserMarkerKey(userID), token.Token, s.cfg.TokenTTL); err != nil {
		s.rollbackAdmission(ctx, userID)
		return nil, fmt.Errorf("failed to set admission marker: %w", err)
	}

	if err := s.persistToken(ctx, token, s.cfg.TokenTTL); err != nil {
		s.rollbackAdmission(ctx, userID)
		return nil, err
	}

	return token, nil
}

// enqueueUser places the user at the back of the waiting line. The score is
// wall-clock milliseconds at insertion; skewed clocks across instances can
// reorder near-simultaneous arrivals, which the line tolerates.
func (s *QueueService) enqueueUser(ctx context.Context, userID string) (*models.QueueToken, error) {
	score := float64(time.Now().UnixMilli())
	if err := s.store.ZAdd(ctx, cache.WaitingQueueKey(), score, userID); err != nil {
		return nil, fmt.Errorf("failed to enqueue user: %w", err)
	}

	rank, found, err := s.store.ZRank(ctx, cache.WaitingQueueKey(), userID)
	if err != nil || !found {
		s.rollbackEnqueue(ctx, userID)
		if err == nil {
			err = fmt.Errorf("user %s vanished from waiting line", userID)
		}
		return nil, fmt.Errorf("failed to rank waiting user: %w", err)
	}

	position := rank + 1
	token := models.NewQueueToken(userID, models.TokenWaiting, position, s.estimateWaitMinutes(position), s.cfg.TokenTTL)

	if err := s.persistToken(ctx, token, s.cfg.TokenTTL); err != nil {
		s.rollbackEnqueue(ctx, userID)
		return nil, err
	}

	return token, nil
}

func (s *QueueService) rollbackAdmission(ctx context.Context, userID string) {
	if err := s.store.SRem(ctx, cache.ActiveUsersKey(), userID); err != nil {
		slog.Error("Failed to roll back admission", "user_id", userID, "error", err)
	}
	if err := s.store.Del(ctx, cache.ActiveUserMarkerKey(userID)); err != nil {
		slog.Error("Failed to roll back admission marker", "user_id", userID, "error", err)
	}
}

func (s *QueueService) rollbackEnqueue(ctx context.Context, userID string) {
	if err := s.store.ZRem(ctx, cache.WaitingQueueKey(), userID); err != nil {
		slog.Error("Failed to roll back enqueue", "user_id", userID, "error", err)
	}
}

// GetStatus returns the token's current standing. WAITING tokens get their
// rank and estimate recomputed and re-persisted with the remaining TTL.
func (s *QueueService) GetStatus(ctx context.Context, tokenID string) (*models.QueueToken, error) {
	token, err := s.loadToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("token %s: %w", tokenID, apperrors.ErrNotFound)
	}
	if token.IsExpired() {
		return nil, fmt.Errorf("token %s: %w", tokenID, apperrors.ErrExpired)
	}

	if token.Status == models.TokenWaiting {
		if err := s.refreshWaitingPosition(ctx, token); err != nil {
			return nil, err
		}
	}

	return token, nil
}

// ValidateActiveToken reports whether the token admits its user right now.
// Any failure, including store errors, denies access.
func (s *QueueService) ValidateActiveToken(ctx context.Context, tokenID string) (*models.QueueToken, error) {
	if tokenID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	token, err := s.loadToken(ctx, tokenID)
	if err != nil {
		slog.Warn("Token validation failed on store error", "error", err)
		return nil, apperrors.ErrUnauthorized
	}
	if token == nil || !token.IsActive() {
		return nil, apperrors.ErrUnauthorized
	}

	return token, nil
}

// PromoteWaiting is the scheduler entrypoint. A single-attempt lock acquire
// keeps concurrent sweeper instances from stacking up behind each other: if
// someone else is sweeping, this pass is simply skipped.
func (s *QueueService) PromoteWaiting(ctx context.Context) (int, error) {
	holderID := uuid.New().String()
	if !s.locker.Acquire(ctx, cache.QueueLockKey(), holderID, s.cfg.LockTTL) {
		metrics.LockContention.WithLabelValues("queue").Inc()
		return 0, nil
	}
	defer s.locker.Release(ctx, cache.QueueLockKey(), holderID)

	return s.Promote(ctx)
}

// Promote reconciles lapsed admission markers and fills the freed slots from
// the front of the waiting line. Callers must hold the admission lock.
func (s *QueueService) Promote(ctx context.Context) (int, error) {
	if err := s.reconcileAdmitted(ctx); err != nil {
		return 0, err
	}

	activeCount, err := s.store.SCard(ctx, cache.ActiveUsersKey())
	if err != nil {
		return 0, fmt.Errorf("failed to count admitted users: %w", err)
	}

	freeSlots := int64(s.cfg.MaxActiveUsers) - activeCount
	if freeSlots <= 0 {
		s.updateGauges(ctx)
		return 0, nil
	}

	candidates, err := s.store.ZRange(ctx, cache.WaitingQueueKey(), 0, freeSlots-1)
	if err != nil {
		return 0, fmt.Errorf("failed to read waiting line: %w", err)
	}

	promoted := 0
	for _, userID := range candidates {
		ok, err := s.promoteUser(ctx, userID)
		if err != nil {
			slog.Error("Failed to promote user", "user_id", userID, "error", err)
			continue
		}
		if ok {
			promoted++
			metrics.UsersPromoted.Inc()
		}
	}

	s.updateGauges(ctx)
	return promoted, nil
}

// promoteUser activates one waiting user. A vanished token means the user's
// token TTL lapsed while they waited; the line entry is dropped silently and
// no promotion is reported.
func (s *QueueService) promoteUser(ctx context.Context, userID string) (bool, error) {
	tokenID, found, err := s.store.Get(ctx, cache.UserTokenKey(userID))
	if err != nil {
		return false, fmt.Errorf("failed to look up user token: %w", err)
	}

	var token *models.QueueToken
	if found {
		token, err = s.loadToken(ctx, tokenID)
		if err != nil {
			return false, err
		}
	}
	if token == nil || token.IsExpired() {
		return false, s.store.ZRem(ctx, cache.WaitingQueueKey(), userID)
	}

	if err := token.Activate(); err != nil {
		return false, err
	}

	ttl := time.Until(token.ExpiresAt)
	if err := s.store.SAdd(ctx, cache.ActiveUsersKey(), userID); err != nil {
		return false, fmt.Errorf("failed to add admitted user: %w", err)
	}
	if err := s.store.Set(ctx, cache.ActiveUserMarkerKey(userID), token.Token, ttl); err != nil {
		s.rollbackAdmission(ctx, userID)
		return false, fmt.Errorf("failed to set admission marker: %w", err)
	}
	if err := s.persistToken(ctx, token, ttl); err != nil {
		s.rollbackAdmission(ctx, userID)
		return false, err
	}

	if err := s.store.ZRem(ctx, cache.WaitingQueueKey(), userID); err != nil {
		slog.Error("Failed to remove promoted user from waiting line", "user_id", userID, "error", err)
	}

	if s.publisher != nil {
		event := models.UserPromotedEvent{
			UserID:    userID,
			Token:     token.Token,
			Timestamp: time.Now(),
		}
		if err := s.publisher.Publish(models.EventUserPromoted, event); err != nil {
			slog.Error("Failed to publish promotion event", "user_id", userID, "error", err)
		}
	}

	return true, nil
}

// reconcileAdmitted drops membership entries whose individual marker key has
// lapsed. The set itself has no TTL; the markers carry it.
func (s *QueueService) reconcileAdmitted(ctx context.Context) error {
	members, err := s.store.SMembers(ctx, cache.ActiveUsersKey())
	if err != nil {
		return fmt.Errorf("failed to list admitted users: %w", err)
	}

	for _, userID := range members {
		_, found, err := s.store.Get(ctx, cache.ActiveUserMarkerKey(userID))
		if err != nil {
			return fmt.Errorf("failed to check admission marker: %w", err)
		}
		if !found {
			if err := s.store.SRem(ctx, cache.ActiveUsersKey(), userID); err != nil {
				return fmt.Errorf("failed to reclaim admitted slot: %w", err)
			}
			slog.Info("Reclaimed lapsed admission", "user_id", userID)
		}
	}

	return nil
}

// refreshWaitingPosition recomputes the rank and estimate, and re-persists
// the token with its remaining TTL so the read does not extend the lifetime.
func (s *QueueService) refreshWaitingPosition(ctx context.Context, token *models.QueueToken) error {
	rank, found, err := s.store.ZRank(ctx, cache.WaitingQueueKey(), token.UserID)
	if err != nil {
		return fmt.Errorf("failed to rank waiting user: %w", err)
	}
	if !found {
		return nil
	}

	token.UpdatePosition(rank+1, s.estimateWaitMinutes(rank+1))

	remaining := time.Until(token.ExpiresAt)
	if remaining <= 0 {
		return nil
	}
	return s.persistToken(ctx, token, remaining)
}

func (s *QueueService) estimateWaitMinutes(position int64) int {
	return int(time.Duration(position) * s.cfg.WaitTimePerUser / time.Minute)
}

func (s *QueueService) persistToken(ctx context.Context, token *models.QueueToken, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := s.store.Set(ctx, cache.QueueTokenKey(token.Token), string(data), ttl); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.store.Set(ctx, cache.UserTokenKey(token.UserID), token.Token, ttl); err != nil {
		return fmt.Errorf("failed to persist user token mapping: %w", err)
	}
	return nil
}

func (s *QueueService) loadToken(ctx context.Context, tokenID string) (*models.QueueToken, error) {
	data, found, err := s.store.Get(ctx, cache.QueueTokenKey(tokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !found {
		return nil, nil
	}

	var token models.QueueToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (s *QueueService) updateGauges(ctx context.Context) {
	if active, err := s.store.SCard(ctx, cache.ActiveUsersKey()); err == nil {
		metrics.ActiveUsers.Set(float64(active))
	}
	if waiting, err := s.store.ZRange(ctx, cache.WaitingQueueKey(), 0, -1); err == nil {
		metrics.WaitingUsers.Set(float64(len(waiting)))
	}
}
