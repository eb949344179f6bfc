package bookings

import (
	"errors"
	"net/http"

	"transigo/internal/catalog"
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

// Reserve handles POST /api/v1/bookings
func (c *Controller) Reserve(ctx *gin.Context) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req ReserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// Header takes precedence over the body field, matching how retrying
	// clients usually send the key
	if headerKey := ctx.GetHeader("Idempotency-Key"); headerKey != "" {
		req.IdempotencyKey = headerKey
	}

	result, err := c.service.Reserve(ctx.Request.Context(), userID, req)
	if err != nil {
		c.respondReserveError(ctx, err)
		return
	}

	resp := result.Booking.ToResponse()
	if result.Replayed {
		response.Success(ctx, http.StatusOK, "Booking already exists for this idempotency key", resp)
		return
	}

	response.Success(ctx, http.StatusCreated, "Booking reserved successfully", resp)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
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

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			response.Error(ctx, http.StatusNotFound, "Booking not found", nil)
			return
		}
		response.Error(ctx, http.StatusInternalServerError, "Failed to get booking", err.Error())
		return
	}

	// Users can only see their own bookings
	if booking.UserID != userID {
		response.Error(ctx, http.StatusForbidden, "Access denied", nil)
		return
	}

	response.Success(ctx, http.StatusOK, "Booking retrieved successfully", booking.ToResponse())
}

// ListBookings handles GET /api/v1/bookings
func (c *Controller) ListBookings(ctx *gin.Context) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	result, err := c.service.ListBookings(ctx.Request.Context(), userID, query)
	if err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to list bookings", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Bookings retrieved successfully", result)
}

// respondReserveError maps the reservation error taxonomy to HTTP codes
func (c *Controller) respondReserveError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrRouteNotFound):
		response.Error(ctx, http.StatusNotFound, "Route not found", nil)
	case errors.Is(err, catalog.ErrScheduleNotFound):
		response.Error(ctx, http.StatusNotFound, "Schedule not found", nil)
	case errors.Is(err, ErrSeatsExhausted):
		response.Error(ctx, http.StatusConflict, "Schedule is fully booked", nil)
	case errors.Is(err, ErrContention):
		response.Error(ctx, http.StatusConflict,
			"Could not claim a seat due to concurrent demand, please retry", nil)
	case errors.Is(err, ErrTimeout):
		response.Error(ctx, http.StatusGatewayTimeout,
			"Reservation timed out, re-issue the request with the same idempotency key", nil)
	case errors.Is(err, ErrRouteInactive),
		errors.Is(err, ErrScheduleRouteMismatch),
		errors.Is(err, ErrScheduleInactiveDay),
		errors.Is(err, ErrInvalidState):
		response.Error(ctx, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		response.Error(ctx, http.StatusInternalServerError, "Failed to reserve booking", err.Error())
	}
}
