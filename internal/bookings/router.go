package bookings

import (
	"transigo/internal/shared/config"
	"transigo/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupBookingRoutes(router *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	// All booking operations require a verified user identity
	userBookings := router.Group("/bookings")
	userBookings.Use(middleware.JWTAuthWithConfig(cfg))
	{
		userBookings.POST("", controller.Reserve)         // POST /api/v1/bookings - Reserve a seat
		userBookings.GET("", controller.ListBookings)     // GET /api/v1/bookings - Booking history
		userBookings.GET("/:id", controller.GetBooking)   // GET /api/v1/bookings/:id - Booking details
	}
}
