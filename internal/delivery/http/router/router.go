// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"fieldtrack/internal/delivery/http/middleware"
	"fieldtrack/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	IngestHandler  *handler.IngestHandler
	ZoneHandler    *handler.ZoneHandler
	TrackerHandler *handler.TrackerHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	ingestHandler  *handler.IngestHandler
	zoneHandler    *handler.ZoneHandler
	trackerHandler *handler.TrackerHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		ingestHandler:  params.IngestHandler,
		zoneHandler:    params.ZoneHandler,
		trackerHandler: params.TrackerHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/token", r.trackerHandler.IssueToken)
	}

	// Device routes require a tracker session
	deviceGroup := e.Group("/v1")
	deviceGroup.Use(r.authMiddleware.Authenticate)
	{
		positionsGroup := deviceGroup.Group("/positions")
		positionsGroup.Use(r.authMiddleware.RequireRole(middleware.RoleTracker))
		positionsGroup.POST("", r.ingestHandler.ReportPosition)

		// Operator routes require the admin role on top of authentication
		adminOnly := r.authMiddleware.RequireRole(middleware.RoleAdmin)

		zonesGroup := deviceGroup.Group("/zones")
		zonesGroup.Use(adminOnly)
		zonesGroup.POST("", r.zoneHandler.CreateZone)
		zonesGroup.GET("", r.zoneHandler.GetZones)
		zonesGroup.GET("/containing", r.zoneHandler.GetZonesContaining)
		zonesGroup.PATCH("/:id/active", r.zoneHandler.SetZoneActive)

		trackersGroup := deviceGroup.Group("/trackers")
		trackersGroup.Use(adminOnly)
		trackersGroup.POST("", r.trackerHandler.EnrollTracker)
		trackersGroup.GET("", r.trackerHandler.GetTrackers)
		trackersGroup.GET("/:id/fixes", r.ingestHandler.GetRecentFixes)
	}
}
