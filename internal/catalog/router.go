package catalog

import (
	"github.com/gin-gonic/gin"
)

func SetupCatalogRoutes(router *gin.RouterGroup, controller *Controller) {
	// Public routes - browsing the catalog requires no identity
	catalog := router.Group("/catalog")
	{
		catalog.GET("/transit-types", controller.GetTransitTypes)
		catalog.GET("/routes", controller.GetRoutes)
		catalog.GET("/routes/:id", controller.GetRoute)
		catalog.GET("/routes/:id/schedules", controller.GetRouteSchedules)
		catalog.GET("/schedules/:id", controller.GetSchedule)
	}
}
