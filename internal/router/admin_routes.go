package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RegisterAdmin registers admin-scoped endpoints under /v1/admin:
// helper-student assignment management, the complaint board, and
// gadget loan approval.
func RegisterAdmin(e *echo.Echo, assignments *handler.AssignmentHandler, complaints *handler.ComplaintHandler, loans *handler.LoanHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/assignments", assignments.Create)
	g.GET("/assignments", assignments.List)
	g.DELETE("/assignments/:id", assignments.Deactivate)

	g.GET("/complaints", complaints.ListOpen)
	g.POST("/complaints/:id/accept", complaints.Accept)
	g.POST("/complaints/:id/dismiss", complaints.Dismiss)
	g.POST("/complaints/:id/resolve", complaints.Resolve)

	g.GET("/loans", loans.ListOpen)
	g.POST("/loans/:id/approve", loans.Approve)
	g.POST("/loans/:id/deny", loans.Deny)
	g.POST("/loans/:id/return", loans.MarkReturned)
}
