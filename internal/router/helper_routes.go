package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RegisterHelper registers helper-scoped endpoints under /v1/helper.
// Helpers browse the pending session board, claim sessions, and close
// them with the student's verification code.
func RegisterHelper(e *echo.Echo, sessions *handler.SessionHandler, assignments *handler.AssignmentHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/helper",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleHelper),
	)

	if cache != nil {
		g.GET("/sessions/pending", sessions.Pending, cache)
	} else {
		g.GET("/sessions/pending", sessions.Pending)
	}
	g.GET("/sessions", sessions.ListMine)
	g.POST("/sessions/:id/accept", sessions.Accept)
	g.POST("/sessions/:id/reject", sessions.Reject)
	g.POST("/sessions/:id/confirm", sessions.Confirm)

	g.GET("/students", assignments.MyStudents)
}
