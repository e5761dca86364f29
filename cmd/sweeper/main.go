package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"torniket/cmd/sweeper/jobs"
	"torniket/internal/cache"
	"torniket/internal/config"
	"torniket/internal/database"
	"torniket/internal/lock"
	"torniket/internal/logger"
	"torniket/internal/messaging"
	"torniket/internal/repository"
	"torniket/internal/service"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()
	cfg.NATS.ClientID = "torniket-sweeper"
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	store, err := cache.NewRedisStore(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	locker := lock.New(store, cfg.Lock)
	queueService := service.NewQueueService(store, locker, cfg.Queue, natsClient)

	seatRepo := repository.NewSeatRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	reservationService := service.NewReservationService(
		reservationRepo, seatRepo, locker, queueService, cfg.Reservation, natsClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promotionJob := jobs.NewPromotionJob(queueService, cfg.Sweep.PromotionInterval)
	expirationJob := jobs.NewReservationExpirationJob(reservationService, cfg.Sweep.ExpirationInterval)

	promotionJob.Start(ctx)
	expirationJob.Start(ctx)

	logger.Get().Info("Sweeper started",
		"promotion_interval", cfg.Sweep.PromotionInterval.String(),
		"expiration_interval", cfg.Sweep.ExpirationInterval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down sweeper...")

	promotionJob.Stop()
	expirationJob.Stop()
	cancel()

	if err := natsClient.Close(); err != nil {
		logger.Get().Error("Error closing NATS connection", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Get().Error("Error closing Redis connection", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Get().Error("Error closing database connection", "error", err)
	}

	logger.Get().Info("Sweeper stopped")
}
