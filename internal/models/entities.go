package models

import (
	"fmt"
	"time"

	apperrors "torniket/internal/errors"

	"github.com/google/uuid"
)

// TokenStatus is the admission standing of one user.
type TokenStatus string

const (
	TokenWaiting TokenStatus = "WAITING"
	TokenActive  TokenStatus = "ACTIVE"
	TokenExpired TokenStatus = "EXPIRED"
)

// QueueToken identifies one user's standing in the admission system. It is
// serialized as JSON into the coordination store with the token's expiry as
// the key TTL.
type QueueToken struct {
	Token                string      `json:"token"`
	UserID               string      `json:"user_id"`
	Position             int64       `json:"position"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
	Status               TokenStatus `json:"status"`
	IssuedAt             time.Time   `json:"issued_at"`
	ExpiresAt            time.Time   `json:"expires_at"`
}

// NewQueueToken issues a fresh token. Position and estimate are zero for
// ACTIVE tokens and meaningful only while WAITING.
func NewQueueToken(userID string, status TokenStatus, position int64, estimatedWaitMinutes int, ttl time.Duration) *QueueToken {
	now := time.Now()
	return &QueueToken{
		Token:                uuid.New().String(),
		UserID:               userID,
		Position:             position,
		EstimatedWaitMinutes: estimatedWaitMinutes,
		Status:               status,
		IssuedAt:             now,
		ExpiresAt:            now.Add(ttl),
	}
}

func (t *QueueToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsActive reports whether the token admits its user right now.
func (t *QueueToken) IsActive() bool {
	return t.Status == TokenActive && !t.IsExpired()
}

// Activate promotes a WAITING token; position and estimate are reset.
func (t *QueueToken) Activate() error {
	if t.Status != TokenWaiting {
		return fmt.Errorf("token %s is %s, not WAITING: %w", t.Token, t.Status, apperrors.ErrInvalidState)
	}
	t.Status = TokenActive
	t.Position = 0
	t.EstimatedWaitMinutes = 0
	return nil
}

// UpdatePosition refreshes the waiting rank and wait estimate.
func (t *QueueToken) UpdatePosition(position int64, estimatedWaitMinutes int) {
	t.Position = position
	t.EstimatedWaitMinutes = estimatedWaitMinutes
}

// SeatStatus is the lifecycle state of a reservable seat.
type SeatStatus string

const (
	SeatAvailable           SeatStatus = "AVAILABLE"
	SeatTemporarilyAssigned SeatStatus = "TEMPORARILY_ASSIGNED"
	SeatReserved            SeatStatus = "RESERVED"
)

// Seat is a reservable unit of an event, uniquely identified by
// (event id, seat number).
type Seat struct {
	ID            int64      `json:"id" db:"id"`
	EventID       int64      `json:"event_id" db:"event_id"`
	Number        int        `json:"number" db:"seat_number"`
	Price         int64      `json:"price" db:"price"`
	Status        SeatStatus `json:"status" db:"status"`
	AssignedUntil *time.Time `json:"assigned_until,omitempty" db:"assigned_until"`
	ReservedAt    *time.Time `json:"reserved_at,omitempty" db:"reserved_at"`
}

func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

func (s *Seat) IsTemporarilyAssigned() bool {
	return s.Status == SeatTemporarilyAssigned
}

// IsHoldExpired reports whether a temporary hold has lapsed. A lapsed seat
// is logically available but must be explicitly released before reuse.
func (s *Seat) IsHoldExpired() bool {
	if !s.IsTemporarilyAssigned() || s.AssignedUntil == nil {
		return false
	}
	return time.Now().After(*s.AssignedUntil)
}

// Assign places a temporary hold on the seat until the given time.
func (s *Seat) Assign(until time.Time) error {
	if !s.IsAvailable() {
		return fmt.Errorf("seat %d is %s: %w", s.ID, s.Status, apperrors.ErrInvalidState)
	}
	s.Status = SeatTemporarilyAssigned
	s.AssignedUntil = &until
	return nil
}

// ConfirmReservation makes a still-valid hold permanent.
func (s *Seat) ConfirmReservation(at time.Time) error {
	if !s.IsTemporarilyAssigned() {
		return fmt.Errorf("seat %d is %s, not temporarily assigned: %w", s.ID, s.Status, apperrors.ErrInvalidState)
	}
	if s.IsHoldExpired() {
		return fmt.Errorf("seat %d hold lapsed: %w", s.ID, apperrors.ErrExpired)
	}
	s.Status = SeatReserved
	s.ReservedAt = &at
	s.AssignedUntil = nil
	return nil
}

// ReleaseAssign returns a temporarily assigned seat to AVAILABLE.
func (s *Seat) ReleaseAssign() error {
	if !s.IsTemporarilyAssigned() {
		return fmt.Errorf("seat %d is %s, not temporarily assigned: %w", s.ID, s.Status, apperrors.ErrInvalidState)
	}
	s.Status = SeatAvailable
	s.AssignedUntil = nil
	return nil
}

// ReservationStatus mirrors the seat lifecycle but is tracked independently
// so seat and reservation can be reconciled after partial failure.
type ReservationStatus string

const (
	ReservationTemporarilyAssigned ReservationStatus = "TEMPORARILY_ASSIGNED"
	ReservationConfirmed           ReservationStatus = "CONFIRMED"
	ReservationCancelled           ReservationStatus = "CANCELLED"
	ReservationExpired             ReservationStatus = "EXPIRED"
)

// Reservation represents one user's active or past claim on one seat.
type Reservation struct {
	ID          string            `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	EventID     int64             `json:"event_id" db:"event_id"`
	SeatID      int64             `json:"seat_id" db:"seat_id"`
	SeatNumber  int               `json:"seat_number" db:"seat_number"`
	Price       int64             `json:"price" db:"price"`
	Status      ReservationStatus `json:"status" db:"status"`
	ExpiresAt   time.Time         `json:"expires_at" db:"expires_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// NewReservation creates the record that mirrors a freshly granted hold.
func NewReservation(userID string, eventID, seatID int64, seatNumber int, price int64, expiresAt time.Time) *Reservation {
	return &Reservation{
		ID:         uuid.New().String(),
		UserID:     userID,
		EventID:    eventID,
		SeatID:     seatID,
		SeatNumber: seatNumber,
		Price:      price,
		Status:     ReservationTemporarilyAssigned,
		ExpiresAt:  expiresAt,
	}
}

func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Confirm finalizes a temporarily assigned, unexpired reservation.
func (r *Reservation) Confirm(at time.Time) error {
	if r.Status != ReservationTemporarilyAssigned {
		return fmt.Errorf("reservation %s is %s: %w", r.ID, r.Status, apperrors.ErrInvalidState)
	}
	if r.IsExpired() {
		return fmt.Errorf("reservation %s lapsed: %w", r.ID, apperrors.ErrExpired)
	}
	r.Status = ReservationConfirmed
	r.ConfirmedAt = &at
	return nil
}

// Cancel voids a temporarily assigned reservation.
func (r *Reservation) Cancel() error {
	if r.Status != ReservationTemporarilyAssigned {
		return fmt.Errorf("reservation %s is %s: %w", r.ID, r.Status, apperrors.ErrInvalidState)
	}
	r.Status = ReservationCancelled
	return nil
}

// Expire marks a lapsed reservation. It is a no-op for reservations whose
// deadline has not passed yet.
func (r *Reservation) Expire() error {
	if r.Status != ReservationTemporarilyAssigned {
		return fmt.Errorf("reservation %s is %s: %w", r.ID, r.Status, apperrors.ErrInvalidState)
	}
	if !r.IsExpired() {
		return nil
	}
	r.Status = ReservationExpired
	return nil
}

// Event represents a concert in the catalog.
type Event struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description" db:"description"`
	DatetimeStart time.Time `json:"datetime_start" db:"datetime_start"`
	TotalSeats    int       `json:"total_seats" db:"total_seats"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
