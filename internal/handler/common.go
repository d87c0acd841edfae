package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
)

// reqTimeout bounds every database call made from a handler.
const reqTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), reqTimeout)
}

// actorFrom reads the authenticated identity the JWT middleware stored
// in the context.
func actorFrom(c echo.Context) lifecycle.Actor {
	id, _ := c.Get("user_id").(uint64)
	role, _ := c.Get("role").(string)
	return lifecycle.Actor{ID: id, Role: role}
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// writeLifecycleError maps transition errors onto HTTP statuses:
// denied permits are 403, unknown requests 404, invalid transitions
// and lost claim races 409, store failures 502.
func writeLifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, lifecycle.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, lifecycle.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already claimed"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid state transition"})
	case errors.Is(err, lifecycle.ErrUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "store unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
