package jobs

import (
	"context"
	"log/slog"
	"time"

	"torniket/internal/metrics"
)

// ExpiredReleaser frees the seats of lapsed temporary holds.
type ExpiredReleaser interface {
	ReleaseExpiredReservations(ctx context.Context) (int, error)
}

// ReservationExpirationJob periodically releases expired holds. It touches
// only seat and reservation state, so it runs without the admission lock.
type ReservationExpirationJob struct {
	reservations ExpiredReleaser
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

func NewReservationExpirationJob(reservations ExpiredReleaser, interval time.Duration) *ReservationExpirationJob {
	return &ReservationExpirationJob{
		reservations: reservations,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the background job. The first pass runs immediately; passes
// run inline in the loop, so a slow pass delays the next tick instead of
// overlapping it.
func (j *ReservationExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting reservation expiration job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go func() {
		j.runOnce(ctx)

		for {
			select {
			case <-j.ticker.C:
				j.runOnce(ctx)
			case <-j.done:
				slog.Info("Reservation expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *ReservationExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ReservationExpirationJob) runOnce(ctx context.Context) {
	start := time.Now()

	released, err := j.reservations.ReleaseExpiredReservations(ctx)
	if err != nil {
		slog.Error("Expiration pass failed", "error", err)
		return
	}

	metrics.SweepDuration.WithLabelValues("expiration").Observe(time.Since(start).Seconds())

	if released > 0 {
		slog.Info("Released expired reservations", "count", released, "elapsed", time.Since(start).String())
	}
}
