package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torniket/internal/cache"
	"torniket/internal/cache/cachetest"
	"torniket/internal/config"
	apperrors "torniket/internal/errors"
	"torniket/internal/lock"
	"torniket/internal/models"
)

// fakeStores holds seats and reservations in memory, handing out copies so
// in-memory mutations only stick after an explicit persist call.
type fakeStores struct {
	mu           sync.Mutex
	seats        map[int64]models.Seat
	reservations map[string]models.Reservation
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		seats:        make(map[int64]models.Seat),
		reservations: make(map[string]models.Reservation),
	}
}

func (f *fakeStores) addSeat(seat models.Seat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats[seat.ID] = seat
}

func (f *fakeStores) seat(id int64) models.Seat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id]
}

func (f *fakeStores) reservation(id string) models.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[id]
}

func (f *fakeStores) GetByID(_ context.Context, id int64) (*models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seat, ok := f.seats[id]
	if !ok {
		return nil, nil
	}
	copied := seat
	return &copied, nil
}

func (f *fakeStores) GetByEventAndNumber(_ context.Context, eventID int64, seatNumber int) (*models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, seat := range f.seats {
		if seat.EventID == eventID && seat.Number == seatNumber {
			copied := seat
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) Update(_ context.Context, seat *models.Seat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seats[seat.ID] = *seat
	return nil
}

type fakeReservations struct {
	stores *fakeStores
}

func (f *fakeStores) reservationStore() *fakeReservations {
	return &fakeReservations{stores: f}
}

func (f *fakeReservations) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	f.stores.mu.Lock()
	defer f.stores.mu.Unlock()
	res, ok := f.stores.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := res
	return &copied, nil
}

func (f *fakeReservations) GetExpired(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	f.stores.mu.Lock()
	defer f.stores.mu.Unlock()
	var expired []models.Reservation
	for _, res := range f.stores.reservations {
		if res.Status == models.ReservationTemporarilyAssigned && res.ExpiresAt.Before(now) {
			expired = append(expired, res)
			if len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}

func (f *fakeReservations) CreateWithSeat(_ context.Context, res *models.Reservation, seat *models.Seat) error {
	f.stores.mu.Lock()
	defer f.stores.mu.Unlock()
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	f.stores.reservations[res.ID] = *res
	f.stores.seats[seat.ID] = *seat
	return nil
}

func (f *fakeReservations) UpdateWithSeat(_ context.Context, res *models.Reservation, seat *models.Seat) error {
	f.stores.mu.Lock()
	defer f.stores.mu.Unlock()
	res.UpdatedAt = time.Now()
	f.stores.reservations[res.ID] = *res
	if seat != nil {
		f.stores.seats[seat.ID] = *seat
	}
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type reservationFixture struct {
	svc       *ReservationService
	queue     *QueueService
	stores    *fakeStores
	cache     *cachetest.Store
	publisher *recordingPublisher
}

func newReservationFixture(holdDuration time.Duration) *reservationFixture {
	store := cachetest.New()
	locker := lock.New(store, lock.Config{MaxAttempts: 2, BackoffBase: time.Millisecond})
	queue := NewQueueService(store, locker, config.QueueConfig{
		MaxActiveUsers:  10,
		TokenTTL:        time.Minute,
		WaitTimePerUser: time.Minute,
		LockTTL:         time.Second,
	}, nil)

	stores := newFakeStores()
	publisher := &recordingPublisher{}
	svc := NewReservationService(stores.reservationStore(), stores, locker, queue,
		config.ReservationConfig{HoldDuration: holdDuration}, publisher)

	return &reservationFixture{
		svc:       svc,
		queue:     queue,
		stores:    stores,
		cache:     store,
		publisher: publisher,
	}
}

func (f *reservationFixture) admit(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.queue.IssueToken(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, models.TokenActive, token.Status)
	return token.Token
}

func TestReserveSeatSuccess(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	before := time.Now()

	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)

	assert.Equal(t, models.ReservationTemporarilyAssigned, res.Status)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, int64(1), res.SeatID)
	assert.True(t, res.ExpiresAt.After(before.Add(4*time.Minute)))

	seat := f.stores.seat(1)
	assert.Equal(t, models.SeatTemporarilyAssigned, seat.Status)
	require.NotNil(t, seat.AssignedUntil)

	// The per-seat lock is released once the hold is persisted.
	_, held, err := f.cache.Get(ctx, cache.SeatLockKey(10, 7))
	require.NoError(t, err)
	assert.False(t, held)

	assert.Equal(t, []string{models.EventReservationCreated}, f.publisher.published())
}

func TestReserveSeatRequiresActiveToken(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	_, err := f.svc.ReserveSeat(ctx, "u1", "bogus-token", 10, 7)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// A valid token only admits its own user.
	token := f.admit(t, "u2")
	_, err = f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestReserveSeatTaken(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	t1 := f.admit(t, "u1")
	t2 := f.admit(t, "u2")

	_, err := f.svc.ReserveSeat(ctx, "u1", t1, 10, 7)
	require.NoError(t, err)

	_, err = f.svc.ReserveSeat(ctx, "u2", t2, 10, 7)
	assert.ErrorIs(t, err, apperrors.ErrSeatTaken)
}

func TestReserveSeatNotFound(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	ctx := context.Background()

	token := f.admit(t, "u1")
	_, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReserveSeatBusyWhenSeatLocked(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	require.NoError(t, f.cache.Set(ctx, cache.SeatLockKey(10, 7), "u2", time.Minute))

	_, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	assert.ErrorIs(t, err, apperrors.ErrBusy)
}

func TestReserveSeatReleasesLapsedHold(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	past := time.Now().Add(-time.Minute)
	f.stores.addSeat(models.Seat{
		ID: 1, EventID: 10, Number: 7, Price: 5000,
		Status: models.SeatTemporarilyAssigned, AssignedUntil: &past,
	})
	ctx := context.Background()

	token := f.admit(t, "u1")
	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)

	seat := f.stores.seat(1)
	assert.Equal(t, models.SeatTemporarilyAssigned, seat.Status)
	require.NotNil(t, seat.AssignedUntil)
	assert.True(t, seat.AssignedUntil.After(time.Now()))
}

func TestCancelReservation(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelReservation(ctx, "u1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)
	assert.Equal(t, models.SeatAvailable, f.stores.seat(1).Status)
	assert.Contains(t, f.publisher.published(), models.EventReservationCancelled)
}

func TestCancelReservationOwnerOnly(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)

	_, err = f.svc.CancelReservation(ctx, "intruder", res.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Nothing changed for the rightful owner.
	assert.Equal(t, models.ReservationTemporarilyAssigned, f.stores.reservation(res.ID).Status)
	assert.Equal(t, models.SeatTemporarilyAssigned, f.stores.seat(1).Status)
}

func TestConfirmReservation(t *testing.T) {
	f := newReservationFixture(5 * time.Minute)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmReservation(ctx, "u1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	seat := f.stores.seat(1)
	assert.Equal(t, models.SeatReserved, seat.Status)
	assert.Nil(t, seat.AssignedUntil)

	// A confirmed reservation can no longer be cancelled.
	_, err = f.svc.CancelReservation(ctx, "u1", res.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestConfirmLapsedReservation(t *testing.T) {
	f := newReservationFixture(time.Millisecond)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 7, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	token := f.admit(t, "u1")
	res, err := f.svc.ReserveSeat(ctx, "u1", token, 10, 7)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = f.svc.ConfirmReservation(ctx, "u1", res.ID)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestReleaseExpiredReservations(t *testing.T) {
	f := newReservationFixture(time.Millisecond)
	f.stores.addSeat(models.Seat{ID: 1, EventID: 10, Number: 1, Price: 5000, Status: models.SeatAvailable})
	f.stores.addSeat(models.Seat{ID: 2, EventID: 10, Number: 2, Price: 5000, Status: models.SeatAvailable})
	ctx := context.Background()

	t1 := f.admit(t, "u1")
	t2 := f.admit(t, "u2")

	r1, err := f.svc.ReserveSeat(ctx, "u1", t1, 10, 1)
	require.NoError(t, err)
	r2, err := f.svc.ReserveSeat(ctx, "u2", t2, 10, 2)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	released, err := f.svc.ReleaseExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	assert.Equal(t, models.ReservationExpired, f.stores.reservation(r1.ID).Status)
	assert.Equal(t, models.ReservationExpired, f.stores.reservation(r2.ID).Status)
	assert.Equal(t, models.SeatAvailable, f.stores.seat(1).Status)
	assert.Equal(t, models.SeatAvailable, f.stores.seat(2).Status)

	// A second pass finds nothing.
	released, err = f.svc.ReleaseExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)
}
