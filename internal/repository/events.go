package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"torniket/internal/database"
	"torniket/internal/models"
	"torniket/internal/search"
)

// EventElasticsearchRepository хранит события в Postgres и индексирует их в
// Elasticsearch для поиска. Postgres выдает идентификаторы, Elasticsearch
// обслуживает чтение каталога.
type EventElasticsearchRepository struct {
	db *database.DB
	es *search.ElasticsearchClient
}

func NewEventElasticsearchRepository(db *database.DB, es *search.ElasticsearchClient) *EventElasticsearchRepository {
	return &EventElasticsearchRepository{db: db, es: es}
}

func (r *EventElasticsearchRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, datetime_start, total_seats)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.DatetimeStart,
		event.TotalSeats,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := r.es.IndexEvent(ctx, event); err != nil {
		// Поиск отстает, но запись уже есть в Postgres
		slog.Error("Failed to index event", "event_id", event.ID, "error", err)
	}

	return nil
}

func (r *EventElasticsearchRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, err := r.es.GetByID(ctx, id)
	if err == nil && event != nil {
		return event, nil
	}
	if err != nil {
		slog.Warn("Elasticsearch get failed, falling back to database", "event_id", id, "error", err)
	}

	event = &models.Event{}
	query := `
		SELECT id, title, description, datetime_start, total_seats, created_at, updated_at
		FROM events
		WHERE id = $1`

	dbErr := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.DatetimeStart,
		&event.TotalSeats,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if dbErr == sql.ErrNoRows {
		return nil, nil
	}

	return event, dbErr
}

func (r *EventElasticsearchRepository) List(ctx context.Context, query, date string, page, pageSize int) ([]models.Event, error) {
	return r.es.Search(ctx, query, date, page, pageSize)
}

func (r *EventElasticsearchRepository) Count(ctx context.Context, query, date string) (int64, error) {
	return r.es.Count(ctx, query, date)
}

func (r *EventElasticsearchRepository) UpdateTotalSeats(ctx context.Context, id int64, totalSeats int) error {
	query := `UPDATE events SET total_seats = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, totalSeats, id); err != nil {
		return err
	}

	event, err := r.GetByID(ctx, id)
	if err != nil || event == nil {
		return err
	}
	event.TotalSeats = totalSeats

	return r.es.UpdateEvent(ctx, event)
}
