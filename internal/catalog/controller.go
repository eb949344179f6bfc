package catalog

import (
	"errors"
	"net/http"

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

// GetTransitTypes handles GET /api/v1/catalog/transit-types
func (c *Controller) GetTransitTypes(ctx *gin.Context) {
	types, err := c.service.GetTransitTypes(ctx.Request.Context())
	if err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to list transit types", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Transit types retrieved successfully", types)
}

// GetRoutes handles GET /api/v1/catalog/routes
func (c *Controller) GetRoutes(ctx *gin.Context) {
	var query RouteListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	routes, err := c.service.GetRoutes(ctx.Request.Context(), query)
	if err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to list routes", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Routes retrieved successfully", routes)
}

// GetRoute handles GET /api/v1/catalog/routes/:id
func (c *Controller) GetRoute(ctx *gin.Context) {
	routeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid route ID", nil)
		return
	}

	route, err := c.service.GetRoute(ctx.Request.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			response.Error(ctx, http.StatusNotFound, "Route not found", nil)
			return
		}
		response.Error(ctx, http.StatusInternalServerError, "Failed to get route", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Route retrieved successfully", route)
}

// GetRouteSchedules handles GET /api/v1/catalog/routes/:id/schedules
func (c *Controller) GetRouteSchedules(ctx *gin.Context) {
	routeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid route ID", nil)
		return
	}

	schedules, err := c.service.GetSchedules(ctx.Request.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			response.Error(ctx, http.StatusNotFound, "Route not found", nil)
			return
		}
		response.Error(ctx, http.StatusInternalServerError, "Failed to list schedules", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Schedules retrieved successfully", schedules)
}

// GetSchedule handles GET /api/v1/catalog/schedules/:id
func (c *Controller) GetSchedule(ctx *gin.Context) {
	scheduleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid schedule ID", nil)
		return
	}

	schedule, err := c.service.GetSchedule(ctx.Request.Context(), scheduleID)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			response.Error(ctx, http.StatusNotFound, "Schedule not found", nil)
			return
		}
		response.Error(ctx, http.StatusInternalServerError, "Failed to get schedule", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Schedule retrieved successfully", schedule)
}
