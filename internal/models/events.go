package models

import "time"

// NATS Event Types
const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
	EventUserPromoted         = "queue.user.promoted"
)

// ReservationEvent carries the reservation lifecycle changes published to
// downstream consumers. Delivery is at-least-once; consumers deduplicate on
// ReservationID + the event subject.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	SeatNumber    int       `json:"seat_number"`
	Price         int64     `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// UserPromotedEvent is published when a waiting user becomes active.
type UserPromotedEvent struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}
