package service

import (
	"torniket/internal/config"
	"torniket/internal/lock"
	"torniket/internal/repository"
)

// Publisher is the domain-event sink. Satisfied by messaging.NATSClient;
// tests substitute a recording fake.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Services struct {
	Queue        *QueueService
	Reservations *ReservationService
	Events       *EventService
}

func NewServices(repos *repository.Repositories, queue *QueueService, locker *lock.Locker, cfg *config.Config, publisher Publisher) *Services {
	reservationService := NewReservationService(repos.Reservations, repos.Seats, locker, queue, cfg.Reservation, publisher)
	eventService := NewEventService(repos.Events, repos.Seats, publisher)

	return &Services{
		Queue:        queue,
		Reservations: reservationService,
		Events:       eventService,
	}
}
