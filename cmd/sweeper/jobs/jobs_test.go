package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingQueue struct {
	calls atomic.Int64
	delay time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (q *countingQueue) PromoteWaiting(context.Context) (int, error) {
	current := q.inFlight.Add(1)
	defer q.inFlight.Add(-1)

	for {
		max := q.maxInFlight.Load()
		if current <= max || q.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}

	if q.delay > 0 {
		time.Sleep(q.delay)
	}
	q.calls.Add(1)
	return 0, nil
}

type countingReleaser struct {
	calls atomic.Int64
}

func (r *countingReleaser) ReleaseExpiredReservations(context.Context) (int, error) {
	r.calls.Add(1)
	return 0, nil
}

func TestPromotionJobRunsAndStops(t *testing.T) {
	queue := &countingQueue{}
	job := NewPromotionJob(queue, 10*time.Millisecond)

	job.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	job.Stop()

	// Let any pass that raced with Stop finish before sampling.
	time.Sleep(20 * time.Millisecond)
	ran := queue.calls.Load()
	assert.GreaterOrEqual(t, ran, int64(2), "expected the initial pass plus ticker passes")

	// No more passes after Stop.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ran, queue.calls.Load())
}

func TestPromotionJobPassesDoNotOverlap(t *testing.T) {
	// Each pass takes several intervals; the loop must wait it out rather
	// than stack concurrent passes.
	queue := &countingQueue{delay: 25 * time.Millisecond}
	job := NewPromotionJob(queue, 5*time.Millisecond)

	job.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	job.Stop()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int64(1), queue.maxInFlight.Load())
	assert.GreaterOrEqual(t, queue.calls.Load(), int64(2))
}

func TestReservationExpirationJobRunsAndStops(t *testing.T) {
	releaser := &countingReleaser{}
	job := NewReservationExpirationJob(releaser, 10*time.Millisecond)

	job.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	job.Stop()

	time.Sleep(20 * time.Millisecond)
	ran := releaser.calls.Load()
	assert.GreaterOrEqual(t, ran, int64(2))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ran, releaser.calls.Load())
}
