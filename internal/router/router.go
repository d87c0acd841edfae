// Package router defines how HTTP routes are registered for the API.
// Routes are grouped per role; every protected group applies JWTAuth
// plus a RequireRole gate, and handlers enforce the finer per-kind
// permissions themselves.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/handler"
	"github.com/uniaccess/campus-assist/internal/middleware"
	"github.com/uniaccess/campus-assist/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes. Unauthenticated
// operations live under /v1/auth; the rate limiter guards them against
// credential stuffing. Protected profile endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterShared registers endpoints available to every authenticated
// role: messaging, uploads, and complaint filing for the three
// non-admin roles.
func RegisterShared(e *echo.Echo, m *handler.MessageHandler, u *handler.UploadHandler, cm *handler.ComplaintHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/messages", m.Send)
	g.GET("/messages", m.Inbox)
	g.GET("/messages/with/:id", m.Conversation)
	g.POST("/messages/:id/read", m.MarkRead)

	g.POST("/uploads", u.Create)
	g.GET("/uploads", u.List)
	g.GET("/uploads/:id/url", u.URL)
	g.GET("/files/*", u.Serve)

	reporters := e.Group(
		"/v1/complaints",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleHelper, model.RoleDriver),
	)
	reporters.POST("", cm.Create)
	reporters.GET("", cm.ListMine)
	reporters.DELETE("/:id", cm.Dismiss)
}
