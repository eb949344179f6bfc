package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transigo/api/routes"
	"transigo/internal/cancellation"
	"transigo/internal/payments"
	"transigo/internal/shared/config"
	"transigo/internal/shared/database"
	"transigo/internal/shared/middleware"
	"transigo/pkg/cache"
	"transigo/pkg/logger"
	"transigo/pkg/ratelimit"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Catalog cache (Redis-backed, optional)
	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.GetRedisClient())
		appLogger.Info("✅ Catalog cache service initialized")
	} else {
		appLogger.Info("Redis unavailable, catalog served without cache")
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			CatalogRequests: cfg.RateLimit.CatalogRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			slog.Int("booking_requests", cfg.RateLimit.BookingRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Setup router and wire the services
	appRouter := routes.NewRouter(cfg, db, cacheService)
	engine := setupEngine(cfg, rateLimiter)
	appRouter.SetupRoutes(engine)

	// Payment authority bridge (optional, Kafka-backed)
	if cfg.Kafka.Enabled {
		producer, err := payments.NewProducer(&payments.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			BookingTopic:     cfg.Kafka.BookingEventsTopic,
			RetryMax:         3,
			TimeoutMs:        10000,
			RequiredAcks:     sarama.WaitForAll,
			CompressionType:  sarama.CompressionSnappy,
			IdempotentWrites: true,
		})
		if err != nil {
			appLogger.Error("Failed to initialize booking event producer", slog.Any("error", err))
		} else {
			appRouter.BookingService().SetEventPublisher(producer)
			appRouter.CancellationService().SetEventPublisher(producer)
			defer producer.Close()
		}

		consumer, err := payments.NewConsumer(&payments.ConsumerConfig{
			Brokers:          cfg.Kafka.Brokers,
			GroupID:          cfg.Kafka.ConsumerGroup,
			PaymentTopic:     cfg.Kafka.PaymentEventsTopic,
			SessionTimeoutMs: 30000,
			HeartbeatMs:      3000,
			OffsetOldest:     true,
		}, appRouter.BookingService(), appRouter.CancellationService())
		if err != nil {
			appLogger.Error("Failed to initialize payment verdict consumer", slog.Any("error", err))
		} else {
			consumer.Start()
			defer func() {
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping payment consumer", slog.Any("error", err))
				}
			}()
		}
	} else {
		appLogger.Info("Kafka disabled, payment verdicts must arrive through operational tooling")
	}

	// Expiry sweeper: cancels bookings stuck payment-pending past the TTL
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	sweeper := cancellation.NewJobProcessor(
		appRouter.CancellationService(),
		appRouter.BookingRepository(),
		&cancellation.JobConfig{
			SweepInterval:     cfg.Reservation.ExpirySweepInterval,
			PendingPaymentTTL: cfg.Reservation.PendingPaymentTTL,
			BatchSize:         cfg.Reservation.ExpiryBatchSize,
		},
	)
	sweeper.Start(sweeperCtx)
	defer sweeper.Stop()

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.Bool("payment_bridge", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupEngine(cfg *config.Config, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: request id for log correlation, request logging,
	// panic recovery
	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
