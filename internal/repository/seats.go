package repository

import (
	"context"
	"database/sql"
	"fmt"

	"torniket/internal/database"
	"torniket/internal/models"
)

type SeatRepository struct {
	db *database.DB
}

func NewSeatRepository(db *database.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// CreateSeatsForEvent заполняет зал местами с одинаковой ценой
func (r *SeatRepository) CreateSeatsForEvent(ctx context.Context, eventID int64, seatCount int, price int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for number := 1; number <= seatCount; number++ {
		query := `
			INSERT INTO seats (event_id, seat_number, price, status)
			VALUES ($1, $2, $3, 'AVAILABLE')`

		if _, err := tx.ExecContext(ctx, query, eventID, number, price); err != nil {
			return err
		}
	}

	updateQuery := `UPDATE events SET total_seats = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, updateQuery, seatCount, eventID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*models.Seat, error) {
	seat := &models.Seat{}
	query := `
		SELECT id, event_id, seat_number, price, status, assigned_until, reserved_at
		FROM seats
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&seat.ID,
		&seat.EventID,
		&seat.Number,
		&seat.Price,
		&seat.Status,
		&seat.AssignedUntil,
		&seat.ReservedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return seat, err
}

func (r *SeatRepository) GetByEventAndNumber(ctx context.Context, eventID int64, seatNumber int) (*models.Seat, error) {
	seat := &models.Seat{}
	query := `
		SELECT id, event_id, seat_number, price, status, assigned_until, reserved_at
		FROM seats
		WHERE event_id = $1 AND seat_number = $2`

	err := r.db.QueryRowContext(ctx, query, eventID, seatNumber).Scan(
		&seat.ID,
		&seat.EventID,
		&seat.Number,
		&seat.Price,
		&seat.Status,
		&seat.AssignedUntil,
		&seat.ReservedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return seat, err
}

func (r *SeatRepository) GetByEventID(ctx context.Context, eventID int64, page, pageSize int, status *models.SeatStatus) ([]models.Seat, error) {
	var seats []models.Seat
	var args []interface{}
	argIndex := 1

	query := `
		SELECT id, event_id, seat_number, price, status, assigned_until, reserved_at
		FROM seats
		WHERE event_id = $1`
	args = append(args, eventID)
	argIndex++

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY seat_number"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.Seat
		err := rows.Scan(
			&seat.ID,
			&seat.EventID,
			&seat.Number,
			&seat.Price,
			&seat.Status,
			&seat.AssignedUntil,
			&seat.ReservedAt,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *SeatRepository) Update(ctx context.Context, seat *models.Seat) error {
	query := `
		UPDATE seats
		SET status = $1, assigned_until = $2, reserved_at = $3
		WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, seat.Status, seat.AssignedUntil, seat.ReservedAt, seat.ID)
	return err
}
