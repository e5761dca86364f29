package api

import (
	"fmt"
	"net/http"

	"torniket/internal/cache"
	"torniket/internal/config"
	"torniket/internal/database"
	"torniket/internal/handlers"
	"torniket/internal/lock"
	"torniket/internal/logger"
	"torniket/internal/messaging"
	"torniket/internal/middleware"
	"torniket/internal/repository"
	"torniket/internal/search"
	"torniket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	store    *cache.RedisStore
	nats     *messaging.NATSClient
	services *service.Services
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	store, err := cache.NewRedisStore(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	locker := lock.New(store, cfg.Lock)
	queueService := service.NewQueueService(store, locker, cfg.Queue, natsClient)

	repos := repository.NewRepositories(db, esClient)
	services := service.NewServices(repos, queueService, locker, cfg, natsClient)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		store:    store,
		nats:     natsClient,
		services: services,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		queue := api.Group("/queue")
		{
			queue.POST("/token", h.IssueToken)
			queue.GET("/status/:token", h.GetQueueStatus)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.ReserveSeat)
			reservations.GET("/:id", h.GetReservation)
			reservations.PATCH("/cancel", h.CancelReservation)
			reservations.PATCH("/confirm", h.ConfirmReservation)
		}

		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.GET("/:id/seats", h.ListSeats)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	overall := "ok"
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"service":  "torniket-api",
		"version":  "1.0.0",
		"database": dbHealth,
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
