package config

import (
	"os"
	"strconv"
	"time"

	"torniket/internal/cache"
	"torniket/internal/database"
	"torniket/internal/lock"
	"torniket/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config

	Queue       QueueConfig
	Lock        lock.Config
	Reservation ReservationConfig
	Sweep       SweepConfig
}

// QueueConfig controls the admission queue.
type QueueConfig struct {
	// MaxActiveUsers is the cap on concurrently admitted users.
	MaxActiveUsers int
	// TokenTTL bounds every token's lifetime and all derived key TTLs.
	TokenTTL time.Duration
	// WaitTimePerUser is the per-user constant behind the wait estimate.
	WaitTimePerUser time.Duration
	// LockTTL bounds the admission lock's critical section.
	LockTTL time.Duration
}

// ReservationConfig controls seat holds.
type ReservationConfig struct {
	// HoldDuration is both the seat hold length and the per-seat lock TTL,
	// so the lock cannot expire before the hold it protects.
	HoldDuration time.Duration
}

// SweepConfig sets the recurring job intervals.
type SweepConfig struct {
	PromotionInterval  time.Duration
	ExpirationInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "torniket"),
			Password:           getEnv("DB_PASSWORD", "torniket123"),
			DBName:             getEnv("DB_NAME", "torniket"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           getEnvInt("REDIS_DB", 0),
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			DialTimeout:  5 * time.Second,
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "torniket"),
			ClientID:  getEnv("NATS_CLIENT_ID", "torniket-api"),
		},

		Queue: QueueConfig{
			MaxActiveUsers:  getEnvInt("QUEUE_MAX_ACTIVE_USERS", 100),
			TokenTTL:        time.Duration(getEnvInt("QUEUE_TOKEN_TTL_MIN", 30)) * time.Minute,
			WaitTimePerUser: time.Duration(getEnvInt("QUEUE_WAIT_TIME_PER_USER_SEC", 20)) * time.Second,
			LockTTL:         time.Duration(getEnvInt("QUEUE_LOCK_TTL_SEC", 5)) * time.Second,
		},

		Lock: lock.Config{
			MaxAttempts: getEnvInt("LOCK_MAX_RETRY_ATTEMPTS", 3),
			BackoffBase: time.Duration(getEnvInt("LOCK_RETRY_BACKOFF_MS", 200)) * time.Millisecond,
		},

		Reservation: ReservationConfig{
			HoldDuration: time.Duration(getEnvInt("RESERVATION_HOLD_MIN", 5)) * time.Minute,
		},

		Sweep: SweepConfig{
			PromotionInterval:  time.Duration(getEnvInt("SWEEP_PROMOTION_INTERVAL_SEC", 5)) * time.Second,
			ExpirationInterval: time.Duration(getEnvInt("SWEEP_EXPIRATION_INTERVAL_SEC", 30)) * time.Second,
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
