package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/queue"
	"github.com/uniaccess/campus-assist/internal/repository"
	queuepub "github.com/uniaccess/campus-assist/internal/service"
)

// DriverRideHandler covers the driver side of dispatch: browsing the
// pending board, claiming a ride, backing out, completing, and pushing
// position updates while en route.
type DriverRideHandler struct {
	Rides     *repository.RideRepo
	Locations *repository.LocationRepo
	Ctrl      *lifecycle.Controller

	// publishAccepted is swappable in tests.
	publishAccepted func(ctx context.Context, ev queue.RideAcceptedEvent) error
}

func NewDriverRideHandler(r *repository.RideRepo, l *repository.LocationRepo, ctrl *lifecycle.Controller) *DriverRideHandler {
	return &DriverRideHandler{Rides: r, Locations: l, Ctrl: ctrl, publishAccepted: queuepub.PublishRideAccepted}
}

// Pending returns unclaimed rides, oldest first so the longest-waiting
// student is served first. Drivers poll this endpoint; the response
// cache in front of it absorbs the fan-out.
func (h *DriverRideHandler) Pending(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindRide, policy.ActionReadAssigned) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rides, err := h.Rides.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, rideToView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rides": out})
}

// Mine returns rides claimed by this driver, newest first.
func (h *DriverRideHandler) Mine(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	rides, err := h.Rides.ListByDriver(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, rideToView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rides": out})
}

// Accept claims a pending ride. Of any number of concurrent accepts
// exactly one succeeds; losers get 409.
func (h *DriverRideHandler) Accept(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Ctrl.Accept(ctx, actor, id); err != nil {
		return writeLifecycleError(c, err)
	}
	ride, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ride failed"})
	}

	// Dispatch event is best-effort; the claim already committed.
	ev := queue.RideAcceptedEvent{
		RideID:     ride.ID,
		RideNumber: ride.RideNumber,
		StudentID:  ride.StudentID,
		DriverID:   actor.ID,
		AcceptedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = h.publishAccepted(context.Background(), ev) }()

	return c.JSON(http.StatusOK, rideToView(ride))
}

// Reject refuses a pending ride, or backs out of one this driver
// already accepted, returning it to the student as rejected.
func (h *DriverRideHandler) Reject(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Ctrl.Reject(ctx, actor, id); err != nil {
		return writeLifecycleError(c, err)
	}
	ride, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ride failed"})
	}
	return c.JSON(http.StatusOK, rideToView(ride))
}

// Complete marks an accepted ride as finished. Only the driver who
// claimed it may complete it.
func (h *DriverRideHandler) Complete(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Ctrl.Complete(ctx, actor, id); err != nil {
		return writeLifecycleError(c, err)
	}
	ride, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ride failed"})
	}
	return c.JSON(http.StatusOK, rideToView(ride))
}

type locationReq struct {
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// PushLocation records the driver's current position. One row per
// driver, overwritten on each push; the sweeper prunes stale fixes.
func (h *DriverRideHandler) PushLocation(c echo.Context) error {
	actor := actorFrom(c)

	var req locationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Locations.Upsert(ctx, actor.ID, req.Latitude, req.Longitude); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save location failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "location recorded"})
}
