package cancellation

import (
	"transigo/internal/shared/config"
	"transigo/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(router *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	cancel := router.Group("/bookings")
	cancel.Use(middleware.JWTAuthWithConfig(cfg))
	{
		cancel.POST("/:id/cancel", controller.CancelBooking)              // POST /api/v1/bookings/:id/cancel
		cancel.GET("/:id/cancellations", controller.GetBookingCancellations) // GET /api/v1/bookings/:id/cancellations
	}
}
