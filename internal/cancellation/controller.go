package cancellation

import (
	"errors"
	"net/http"

	"transigo/internal/bookings"
	"transigo/internal/shared/middleware"
	"transigo/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid booking ID", nil)
		return
	}

	// Reason is optional, an empty body is fine
	var req CancelRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	booking, err := c.service.CancelForUser(ctx.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			response.Error(ctx, http.StatusNotFound, "Booking not found", nil)
		case errors.Is(err, ErrNotOwner):
			response.Error(ctx, http.StatusForbidden, "Access denied", nil)
		case errors.Is(err, bookings.ErrInvalidState):
			response.Error(ctx, http.StatusUnprocessableEntity, err.Error(), nil)
		default:
			response.Error(ctx, http.StatusInternalServerError, "Failed to cancel booking", err.Error())
		}
		return
	}

	response.Success(ctx, http.StatusOK, "Booking cancelled successfully", booking.ToResponse())
}

// GetBookingCancellations handles GET /api/v1/bookings/:id/cancellations
func (c *Controller) GetBookingCancellations(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid booking ID", nil)
		return
	}

	records, err := c.service.GetBookingCancellations(ctx.Request.Context(), bookingID)
	if err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to get cancellations", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Cancellations retrieved successfully", records)
}
