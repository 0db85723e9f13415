// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/depot-yard/internal/handler"
	"github.com/iliyamo/depot-yard/internal/middleware"
	"github.com/iliyamo/depot-yard/internal/utils"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", h.Ready)
}

// YardMiddleware carries the optional Redis-backed middlewares.  Nil fields
// are skipped.
type YardMiddleware struct {
	RateLimit  echo.MiddlewareFunc // whole /v1 group, after authentication
	Cache      echo.MiddlewareFunc // read routes
	Invalidate echo.MiddlewareFunc // write routes
}

// RegisterYard registers the placement API under /v1/yard.  Every route
// requires a valid JWT; reads accept any yard role and writes require
// OPERATOR or SUPERVISOR.
func RegisterYard(e *echo.Echo, y *handler.YardHandler, jwtSecret string, mw YardMiddleware) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	if mw.RateLimit != nil {
		g.Use(mw.RateLimit)
	}
	yard := g.Group("/yard")

	read := []echo.MiddlewareFunc{middleware.RequireRole(utils.RoleOperator, utils.RoleSupervisor, utils.RoleViewer)}
	if mw.Cache != nil {
		read = append(read, mw.Cache)
	}
	yard.GET("/stack-map", y.StackMap, read...)
	yard.GET("/slots/:id/stack", y.SlotStack, read...)
	yard.GET("/containers/:container_no/location", y.Locate, read...)
	yard.GET("/suggest", y.Suggest, read...)

	write := []echo.MiddlewareFunc{middleware.RequireRole(utils.RoleOperator, utils.RoleSupervisor)}
	if mw.Invalidate != nil {
		write = append(write, mw.Invalidate)
	}
	yard.POST("/holds", y.Hold, write...)
	yard.POST("/confirm", y.Confirm, write...)
	yard.POST("/release", y.Release, write...)
	yard.POST("/remove", y.Remove, write...)
}
