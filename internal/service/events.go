package service

import (
	"context"
	"fmt"
	"time"

	apperrors "torniket/internal/errors"
	"torniket/internal/models"
	"torniket/internal/repository"
)

// EventService ведет каталог событий и заполняет залы местами
type EventService struct {
	events    *repository.EventElasticsearchRepository
	seats     *repository.SeatRepository
	publisher Publisher
}

func NewEventService(events *repository.EventElasticsearchRepository, seats *repository.SeatRepository, publisher Publisher) *EventService {
	return &EventService{
		events:    events,
		seats:     seats,
		publisher: publisher,
	}
}

// CreateEvent creates the event and, when a seat count is given, seeds its
// seats in one pass.
func (s *EventService) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	datetimeStart, err := time.Parse(time.RFC3339, req.DatetimeStart)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime_start %q: %w", req.DatetimeStart, err)
	}

	event := &models.Event{
		Title:         req.Title,
		DatetimeStart: datetimeStart,
		TotalSeats:    req.SeatCount,
	}
	if req.Description != "" {
		event.Description = &req.Description
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	if req.SeatCount > 0 {
		if err := s.seats.CreateSeatsForEvent(ctx, event.ID, req.SeatCount, req.SeatPrice); err != nil {
			return nil, fmt.Errorf("failed to seed seats: %w", err)
		}
	}

	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", id, apperrors.ErrNotFound)
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, query, date string, page, pageSize int) ([]models.Event, error) {
	return s.events.List(ctx, query, date, page, pageSize)
}

func (s *EventService) ListSeats(ctx context.Context, eventID int64, page, pageSize int, status *models.SeatStatus) ([]models.Seat, error) {
	return s.seats.GetByEventID(ctx, eventID, page, pageSize, status)
}
