package repository

import (
	"context"
	"database/sql"
	"time"

	"torniket/internal/database"
	"torniket/internal/models"
)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	res := &models.Reservation{}
	query := `
		SELECT id, user_id, event_id, seat_id, seat_number, price, status,
		       expires_at, confirmed_at, created_at, updated_at
		FROM reservations
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.UserID,
		&res.EventID,
		&res.SeatID,
		&res.SeatNumber,
		&res.Price,
		&res.Status,
		&res.ExpiresAt,
		&res.ConfirmedAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return res, err
}

// GetExpired возвращает просроченные временные брони
func (r *ReservationRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := `
		SELECT id, user_id, event_id, seat_id, seat_number, price, status,
		       expires_at, confirmed_at, created_at, updated_at
		FROM reservations
		WHERE status = 'TEMPORARILY_ASSIGNED' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		err := rows.Scan(
			&res.ID,
			&res.UserID,
			&res.EventID,
			&res.SeatID,
			&res.SeatNumber,
			&res.Price,
			&res.Status,
			&res.ExpiresAt,
			&res.ConfirmedAt,
			&res.CreatedAt,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

// CreateWithSeat вставляет бронь и обновляет место в одной транзакции
func (r *ReservationRepository) CreateWithSeat(ctx context.Context, res *models.Reservation, seat *models.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO reservations (id, user_id, event_id, seat_id, seat_number, price, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		res.ID, res.UserID, res.EventID, res.SeatID, res.SeatNumber,
		res.Price, res.Status, res.ExpiresAt,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return err
	}

	seatQuery := `
		UPDATE seats
		SET status = $1, assigned_until = $2, reserved_at = $3
		WHERE id = $4`

	if _, err := tx.ExecContext(ctx, seatQuery, seat.Status, seat.AssignedUntil, seat.ReservedAt, seat.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateWithSeat сохраняет бронь и место в одной транзакции. Nil место
// означает что обновляется только бронь.
func (r *ReservationRepository) UpdateWithSeat(ctx context.Context, res *models.Reservation, seat *models.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	resQuery := `
		UPDATE reservations
		SET status = $1, confirmed_at = $2, updated_at = NOW()
		WHERE id = $3`

	if _, err := tx.ExecContext(ctx, resQuery, res.Status, res.ConfirmedAt, res.ID); err != nil {
		return err
	}

	if seat != nil {
		seatQuery := `
			UPDATE seats
			SET status = $1, assigned_until = $2, reserved_at = $3
			WHERE id = $4`

		if _, err := tx.ExecContext(ctx, seatQuery, seat.Status, seat.AssignedUntil, seat.ReservedAt, seat.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
