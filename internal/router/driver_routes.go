package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RegisterDriver registers driver-scoped endpoints under /v1/driver.
// Drivers poll the pending board, claim rides, and push position
// updates while en route.
func RegisterDriver(e *echo.Echo, rides *handler.DriverRideHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/driver",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleDriver),
	)

	if cache != nil {
		g.GET("/rides/pending", rides.Pending, cache)
	} else {
		g.GET("/rides/pending", rides.Pending)
	}
	g.GET("/rides", rides.Mine)
	g.POST("/rides/:id/accept", rides.Accept)
	g.POST("/rides/:id/reject", rides.Reject)
	g.POST("/rides/:id/complete", rides.Complete)

	g.POST("/location", rides.PushLocation)
}
