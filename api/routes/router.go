// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"transigo/internal/bookings"
	"transigo/internal/cancellation"
	"transigo/internal/catalog"
	"transigo/internal/inventory"
	"transigo/internal/shared/config"
	"transigo/internal/shared/database"
	"transigo/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config       *config.Config
	db           *database.DB
	cacheService cache.Service

	// Services kept for cross-package wiring (Kafka bridge, expiry sweeper)
	catalogService catalog.Service
	bookingService bookings.Service
	cancelService  cancellation.Service
	bookingRepo    bookings.Repository
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, cacheService cache.Service) *Router {
	return &Router{
		config:       cfg,
		db:           db,
		cacheService: cacheService,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Catalog routes first so the booking services can depend on it
		r.setupCatalogRoutes(api)

		r.setupBookingRoutes(api)
	}
}

// BookingService exposes the wired booking service for the payment bridge
func (r *Router) BookingService() bookings.Service {
	return r.bookingService
}

// CancellationService exposes the wired cancellation service for the payment
// bridge and the expiry sweeper
func (r *Router) CancellationService() cancellation.Service {
	return r.cancelService
}

// BookingRepository exposes the booking repository for the expiry sweeper
func (r *Router) BookingRepository() bookings.Repository {
	return r.bookingRepo
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "transigo-booking-engine",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "transigo-booking-engine",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupCatalogRoutes configures the public catalog browsing routes
func (r *Router) setupCatalogRoutes(rg *gin.RouterGroup) {
	catalogRepo := catalog.NewRepository(r.db.GetPostgreSQL())
	catalogService := catalog.NewService(catalogRepo, r.config.Redis.CatalogTTL)

	if r.cacheService != nil {
		catalogService.SetCacheService(r.cacheService)
	}

	r.catalogService = catalogService

	catalogController := catalog.NewController(catalogService)
	catalog.SetupCatalogRoutes(rg, catalogController)
}

// setupBookingRoutes configures the reservation and cancellation routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	seatStore := inventory.NewStore(r.db.GetPostgreSQL())

	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(bookingRepo, seatStore, r.catalogService, r.config.Reservation.MaxRetries)

	r.bookingRepo = bookingRepo
	r.bookingService = bookingService

	bookingController := bookings.NewController(bookingService)
	bookings.SetupBookingRoutes(rg, bookingController, r.config)

	cancelRepo := cancellation.NewRepository(r.db.GetPostgreSQL())
	cancelService := cancellation.NewService(cancelRepo, bookingRepo, seatStore)

	r.cancelService = cancelService

	cancelController := cancellation.NewController(cancelService)
	cancellation.SetupCancellationRoutes(rg, cancelController, r.config)
}
