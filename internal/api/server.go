package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"fastpayment/internal/auth"
	"fastpayment/internal/cache"
	"fastpayment/internal/config"
	"fastpayment/internal/database"
	"fastpayment/internal/external"
	"fastpayment/internal/handlers"
	"fastpayment/internal/logger"
	"fastpayment/internal/messaging"
	"fastpayment/internal/metrics"
	"fastpayment/internal/middleware"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"
	"fastpayment/internal/search"
	"fastpayment/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	tokens   *auth.TokenManager
	services *service.Services
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// The database is the source of truth; the bus only feeds mail and search.
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, domain events will not be published", "error", err)
		natsClient = messaging.NewDisconnectedClient()
	}

	var limiter service.RateLimiter
	valkeyClient, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		slog.Warn("Valkey unavailable, OTP rate limiting disabled", "error", err)
	} else {
		limiter = valkeyClient
	}

	var searcher service.HistorySearcher
	if cfg.Elasticsearch.Enabled {
		esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, history search reads from database", "error", err)
		} else {
			searcher = esClient
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.ClientTTL, cfg.Auth.AdminTTL)

	services := service.NewServices(service.Deps{
		Repos:     repository.NewRepositories(db),
		Publisher: natsClient,
		Limiter:   limiter,
		Provider:  external.NewMercadoPagoClient(cfg.MercadoPago),
		Tokens:    tokens,
		Searcher:  searcher,
		Config:    cfg,
	})

	server := &Server{
		router:   gin.New(),
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		tokens:   tokens,
		services: services,
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	s.router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CORS(s.config.CORSOrigin),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.Timeout(s.config.RequestTimeout),
	)

	h := handlers.NewHandlers(s.services)
	authenticated := middleware.Authenticate(s.tokens)

	api := s.router.Group("/api")
	{
		api.GET("/schedules", h.ListSchedules)
		api.POST("/otp/issue", h.IssueOTP)
		api.POST("/otp/validate", h.ValidateOTP)
		api.POST("/auth/login", h.Login)
		api.POST("/webhooks/mercadopago", h.PaymentWebhook)

		api.GET("/payments/status", authenticated, middleware.RequireRole(models.RoleClient, models.RoleAdmin), h.PaymentStatus)

		client := api.Group("", authenticated, middleware.RequireRole(models.RoleClient))
		{
			client.POST("/checkout", h.Checkout)
			client.POST("/registrations/finalize", h.FinalizeRegistration)
		}

		admin := api.Group("/admin", authenticated, middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/schedules", h.ListAllSchedules)
			admin.POST("/schedules", h.CreateSchedule)
			admin.POST("/schedules/sweep", h.SweepSchedules)
			admin.DELETE("/schedules/:id", h.DeleteSchedule)
			admin.PATCH("/schedules/:id/vacancies", h.AdjustVacancies)

			admin.POST("/subscriptions", h.CompleteSubscription)
			admin.GET("/dashboard", h.Dashboard)
			admin.GET("/history", h.SearchHistory)

			admin.GET("/units", h.ListUnits)
			admin.POST("/units", h.CreateUnit)
			admin.DELETE("/units/:id", h.DeleteUnit)
			admin.GET("/event-types", h.ListEventTypes)
			admin.POST("/event-types", h.CreateEventType)
			admin.DELETE("/event-types/:id", h.DeleteEventType)
			admin.GET("/events", h.ListEvents)
			admin.POST("/events", h.CreateEvent)
			admin.DELETE("/events/:id", h.DeleteEvent)

			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.RegisterAdmin)
			admin.DELETE("/users/:id", h.DeleteUser)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())
	metrics.RecordPoolStats(dbHealth.Stats)

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "fastpayment-api",
		"database": dbHealth,
		"nats":     s.nats.Connected(),
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// StartPprof serves runtime profiles on a separate port when enabled.
func (s *Server) StartPprof() {
	if !s.config.PprofEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		addr := ":" + s.config.PprofPort
		slog.Info("Starting pprof server", "addr", addr)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("pprof server failed", "error", err)
		}
	}()
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
