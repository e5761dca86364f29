package repository

import (
	"torniket/internal/database"
	"torniket/internal/search"
)

type Repositories struct {
	Events       *EventElasticsearchRepository
	Seats        *SeatRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB, es *search.ElasticsearchClient) *Repositories {
	return &Repositories{
		Events:       NewEventElasticsearchRepository(db, es),
		Seats:        NewSeatRepository(db),
		Reservations: NewReservationRepository(db),
	}
}
