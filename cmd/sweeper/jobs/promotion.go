package jobs

import (
	"context"
	"log/slog"
	"time"

	"torniket/internal/metrics"
)

// Promoter drains the waiting line into freed admission slots.
type Promoter interface {
	PromoteWaiting(ctx context.Context) (int, error)
}

// PromotionJob periodically reconciles admissions and promotes waiting users.
type PromotionJob struct {
	queue    Promoter
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewPromotionJob(queue Promoter, interval time.Duration) *PromotionJob {
	return &PromotionJob{
		queue:    queue,
		interval: interval,
		done:     make(chan bool),
	}
}

// Start begins the background job. The first pass runs immediately; passes
// run inline in the loop, so a slow pass delays the next tick instead of
// overlapping it.
func (j *PromotionJob) Start(ctx context.Context) {
	slog.Info("Starting promotion job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go func() {
		j.runOnce(ctx)

		for {
			select {
			case <-j.ticker.C:
				j.runOnce(ctx)
			case <-j.done:
				slog.Info("Promotion job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *PromotionJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PromotionJob) runOnce(ctx context.Context) {
	start := time.Now()

	promoted, err := j.queue.PromoteWaiting(ctx)
	if err != nil {
		slog.Error("Promotion pass failed", "error", err)
		return
	}

	metrics.SweepDuration.WithLabelValues("promotion").Observe(time.Since(start).Seconds())

	if promoted > 0 {
		slog.Info("Promoted waiting users", "count", promoted, "elapsed", time.Since(start).String())
	}
}
