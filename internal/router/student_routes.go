package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RegisterStudent registers student-scoped endpoints under
// /v1/student. All routes require a valid JWT and the STUDENT role.
// Students request rides, help sessions and gadget loans, reveal
// session codes, and follow their driver while a ride is underway.
func RegisterStudent(e *echo.Echo, rides *handler.StudentRideHandler, sessions *handler.SessionHandler, loans *handler.LoanHandler, assignments *handler.AssignmentHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/student",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)

	g.POST("/rides", rides.Create)
	g.GET("/rides", rides.List)
	g.GET("/rides/:id", rides.Get)
	g.DELETE("/rides/:id", rides.Cancel)
	// Clients poll the driver position; the response cache absorbs it.
	if cache != nil {
		g.GET("/rides/:id/driver-location", rides.DriverLocation, cache)
	} else {
		g.GET("/rides/:id/driver-location", rides.DriverLocation)
	}

	g.POST("/sessions", sessions.Create)
	g.GET("/sessions", sessions.ListMine)
	g.DELETE("/sessions/:id", sessions.Reject)
	g.POST("/sessions/:id/code", sessions.IssueCode)

	g.POST("/loans", loans.Create)
	g.GET("/loans", loans.ListMine)
	g.DELETE("/loans/:id", loans.Deny)

	g.GET("/helper", assignments.MyHelper)
}
