package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createSeatsTable,
		createReservationsTable,
		createReservationsExpiryIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    datetime_start TIMESTAMP NOT NULL,
    total_seats INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    seat_number INTEGER NOT NULL,
    price BIGINT NOT NULL,
    status VARCHAR(30) NOT NULL DEFAULT 'AVAILABLE',
    assigned_until TIMESTAMP,
    reserved_at TIMESTAMP,

    UNIQUE(event_id, seat_number),
    CHECK (status IN ('AVAILABLE', 'TEMPORARILY_ASSIGNED', 'RESERVED'))
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    seat_id INTEGER NOT NULL REFERENCES seats(id) ON DELETE CASCADE,
    seat_number INTEGER NOT NULL,
    price BIGINT NOT NULL,
    status VARCHAR(30) NOT NULL DEFAULT 'TEMPORARILY_ASSIGNED',
    expires_at TIMESTAMP NOT NULL,
    confirmed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('TEMPORARILY_ASSIGNED', 'CONFIRMED', 'CANCELLED', 'EXPIRED'))
);`

const createReservationsExpiryIndex = `
CREATE INDEX IF NOT EXISTS reservations_status_expires_at_idx
ON reservations (status, expires_at);`
