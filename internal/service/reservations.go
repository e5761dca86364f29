package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"torniket/internal/cache"
	"torniket/internal/config"
	apperrors "torniket/internal/errors"
	"torniket/internal/lock"
	"torniket/internal/metrics"
	"torniket/internal/models"
)

// SeatStore is the seat persistence surface the reservation engine needs.
type SeatStore interface {
	GetByID(ctx context.Context, id int64) (*models.Seat, error)
	GetByEventAndNumber(ctx context.Context, eventID int64, seatNumber int) (*models.Seat, error)
	Update(ctx context.Context, seat *models.Seat) error
}

// ReservationStore persists reservations, paired with their seat in one
// transaction so the two records cannot drift apart.
type ReservationStore interface {
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	GetExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	CreateWithSeat(ctx context.Context, res *models.Reservation, seat *models.Seat) error
	UpdateWithSeat(ctx context.Context, res *models.Reservation, seat *models.Seat) error
}

// TokenValidator gates reservation calls on queue admission.
type TokenValidator interface {
	ValidateActiveToken(ctx context.Context, tokenID string) (*models.QueueToken, error)
}

const expiredBatchSize = 100

// ReservationService реализует временное бронирование мест с подтверждением
// и отменой
type ReservationService struct {
	reservations ReservationStore
	seats        SeatStore
	locker       *lock.Locker
	tokens       TokenValidator
	cfg          config.ReservationConfig
	publisher    Publisher
}

func NewReservationService(reservations ReservationStore, seats SeatStore, locker *lock.Locker, tokens TokenValidator, cfg config.ReservationConfig, publisher Publisher) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		seats:        seats,
		locker:       locker,
		tokens:       tokens,
		cfg:          cfg,
		publisher:    publisher,
	}
}

// ReserveSeat places a temporary hold on one seat for an admitted user. The
// per-seat lock's TTL equals the hold duration, so the lock cannot lapse
// before the hold it protects.
func (s *ReservationService) ReserveSeat(ctx context.Context, userID, tokenID string, eventID int64, seatNumber int) (*models.Reservation, error) {
	token, err := s.tokens.ValidateActiveToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.UserID != userID {
		return nil, fmt.Errorf("token belongs to another user: %w", apperrors.ErrUnauthorized)
	}

	lockKey := cache.SeatLockKey(eventID, seatNumber)
	if !s.locker.AcquireWithRetry(ctx, lockKey, userID, s.cfg.HoldDuration) {
		metrics.LockContention.WithLabelValues("seat").Inc()
		return nil, fmt.Errorf("seat %d of event %d is contended: %w", seatNumber, eventID, apperrors.ErrBusy)
	}
	defer s.locker.Release(ctx, lockKey, userID)

	seat, err := s.seats.GetByEventAndNumber(ctx, eventID, seatNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}
	if seat == nil {
		return nil, fmt.Errorf("seat %d of event %d: %w", seatNumber, eventID, apperrors.ErrNotFound)
	}

	// Lapsed holds the sweeper has not reached yet are released in place.
	if seat.IsHoldExpired() {
		if err := seat.ReleaseAssign(); err != nil {
			return nil, err
		}
		slog.Info("Released lapsed hold in place", "seat_id", seat.ID, "event_id", eventID)
	}

	if !seat.IsAvailable() {
		return nil, fmt.Errorf("seat %d of event %d is %s: %w", seatNumber, eventID, seat.Status, apperrors.ErrSeatTaken)
	}

	now := time.Now()
	holdUntil := now.Add(s.cfg.HoldDuration)
	if err := seat.Assign(holdUntil); err != nil {
		return nil, err
	}

	reservation := models.NewReservation(userID, eventID, seat.ID, seat.Number, seat.Price, holdUntil)
	if err := s.reservations.CreateWithSeat(ctx, reservation, seat); err != nil {
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	metrics.ReservationsCreated.Inc()
	s.publishReservationEvent(models.EventReservationCreated, reservation)

	return reservation, nil
}

// CancelReservation voids the user's own temporary hold and frees the seat.
func (s *ReservationService) CancelReservation(ctx context.Context, userID, reservationID string) (*models.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, apperrors.ErrNotFound)
	}
	if reservation.UserID != userID {
		return nil, fmt.Errorf("reservation %s belongs to another user: %w", reservationID, apperrors.ErrUnauthorized)
	}

	if err := reservation.Cancel(); err != nil {
		return nil, err
	}

	seat, err := s.seats.GetByID(ctx, reservation.SeatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}
	if seat != nil && seat.IsTemporarilyAssigned() {
		if err := seat.ReleaseAssign(); err != nil {
			return nil, err
		}
	}

	if err := s.reservations.UpdateWithSeat(ctx, reservation, seat); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	s.publishReservationEvent(models.EventReservationCancelled, reservation)
	return reservation, nil
}

// ConfirmReservation is the payment layer's hook: it finalizes a still-valid
// hold, making the seat RESERVED for good.
func (s *ReservationService) ConfirmReservation(ctx context.Context, userID, reservationID string) (*models.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, apperrors.ErrNotFound)
	}
	if reservation.UserID != userID {
		return nil, fmt.Errorf("reservation %s belongs to another user: %w", reservationID, apperrors.ErrUnauthorized)
	}

	now := time.Now()
	if err := reservation.Confirm(now); err != nil {
		return nil, err
	}

	seat, err := s.seats.GetByID(ctx, reservation.SeatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}
	if seat == nil {
		return nil, fmt.Errorf("seat %d: %w", reservation.SeatID, apperrors.ErrNotFound)
	}
	if err := seat.ConfirmReservation(now); err != nil {
		return nil, err
	}

	if err := s.reservations.UpdateWithSeat(ctx, reservation, seat); err != nil {
		return nil, fmt.Errorf("failed to persist confirmation: %w", err)
	}

	metrics.ReservationsConfirmed.Inc()
	s.publishReservationEvent(models.EventReservationConfirmed, reservation)

	return reservation, nil
}

// GetReservationStatus is a pure read.
func (s *ReservationService) GetReservationStatus(ctx context.Context, reservationID string) (*models.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, apperrors.ErrNotFound)
	}
	return reservation, nil
}

// ReleaseExpiredReservations frees the seats of lapsed holds. Each pair is
// released in its own transaction, so one bad row cannot stall the sweep.
func (s *ReservationService) ReleaseExpiredReservations(ctx context.Context) (int, error) {
	expired, err := s.reservations.GetExpired(ctx, time.Now(), expiredBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	released := 0
	for i := range expired {
		reservation := &expired[i]
		if err := s.releaseExpired(ctx, reservation); err != nil {
			slog.Error("Failed to release expired reservation",
				"reservation_id", reservation.ID, "error", err)
			continue
		}
		released++
		metrics.ReservationsExpired.Inc()
		s.publishReservationEvent(models.EventReservationExpired, reservation)
	}

	return released, nil
}

func (s *ReservationService) releaseExpired(ctx context.Context, reservation *models.Reservation) error {
	if err := reservation.Expire(); err != nil {
		return err
	}

	seat, err := s.seats.GetByID(ctx, reservation.SeatID)
	if err != nil {
		return fmt.Errorf("failed to load seat: %w", err)
	}
	if seat != nil && seat.IsTemporarilyAssigned() {
		if err := seat.ReleaseAssign(); err != nil {
			return err
		}
	}

	return s.reservations.UpdateWithSeat(ctx, reservation, seat)
}

func (s *ReservationService) publishReservationEvent(subject string, reservation *models.Reservation) {
	if s.publisher == nil {
		return
	}
	event := models.ReservationEvent{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		EventID:       reservation.EventID,
		SeatNumber:    reservation.SeatNumber,
		Price:         reservation.Price,
		Timestamp:     time.Now(),
	}
	if err := s.publisher.Publish(subject, event); err != nil {
		slog.Error("Failed to publish reservation event",
			"subject", subject, "reservation_id", reservation.ID, "error", err)
	}
}
