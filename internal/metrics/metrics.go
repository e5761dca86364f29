package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued считает выданные токены по начальному статусу (ACTIVE/WAITING)
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "torniket_queue_tokens_issued_total",
		Help: "Number of queue tokens issued, by initial status.",
	}, []string{"status"})

	UsersPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "torniket_queue_users_promoted_total",
		Help: "Number of waiting users promoted to active.",
	})

	ActiveUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "torniket_queue_active_users",
		Help: "Current number of admitted users.",
	})

	WaitingUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "torniket_queue_waiting_users",
		Help: "Current length of the waiting line.",
	})

	LockContention = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "torniket_lock_contention_total",
		Help: "Number of lock acquisitions that failed because the lock was held.",
	}, []string{"lock"})

	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "torniket_reservations_created_total",
		Help: "Number of seat holds created.",
	})

	ReservationsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "torniket_reservations_confirmed_total",
		Help: "Number of reservations confirmed.",
	})

	ReservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "torniket_reservations_expired_total",
		Help: "Number of seat holds released by the expiration sweep.",
	})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "torniket_sweep_duration_seconds",
		Help:    "Duration of one sweep pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)
