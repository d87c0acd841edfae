package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/repository"
)

// StudentRideHandler covers the student side of ride dispatch:
// requesting a ride, cancelling it, and following its progress.
type StudentRideHandler struct {
	Rides     *repository.RideRepo
	Locations *repository.LocationRepo
	Ctrl      *lifecycle.Controller
}

func NewStudentRideHandler(r *repository.RideRepo, l *repository.LocationRepo, ctrl *lifecycle.Controller) *StudentRideHandler {
	return &StudentRideHandler{Rides: r, Locations: l, Ctrl: ctrl}
}

type createRideReq struct {
	Pickup      string `json:"pickup" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	Note        string `json:"note"`
}

type rideView struct {
	ID          uint64  `json:"id"`
	RideNumber  string  `json:"ride_number"`
	StudentID   uint64  `json:"student_id"`
	DriverID    *uint64 `json:"driver_id,omitempty"`
	Pickup      string  `json:"pickup"`
	Destination string  `json:"destination"`
	Note        string  `json:"note,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func rideToView(r model.RideRequest) rideView {
	return rideView{
		ID:          r.ID,
		RideNumber:  r.RideNumber,
		StudentID:   r.StudentID,
		DriverID:    r.DriverID,
		Pickup:      r.Pickup,
		Destination: r.Destination,
		Note:        r.Note,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create files a new ride request in PENDING for the dispatch watcher
// to announce.
func (h *StudentRideHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindRide, policy.ActionCreate) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req createRideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ride := model.RideRequest{
		RideNumber:  uuid.New().String(),
		StudentID:   actor.ID,
		Pickup:      strings.TrimSpace(req.Pickup),
		Destination: strings.TrimSpace(req.Destination),
		Note:        strings.TrimSpace(req.Note),
		Status:      lifecycle.StatusPending,
	}
	id, err := h.Rides.Create(ctx, &ride)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ride failed"})
	}

	created, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ride failed"})
	}
	return c.JSON(http.StatusCreated, rideToView(created))
}

// List returns the student's own rides, newest first.
func (h *StudentRideHandler) List(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindRide, policy.ActionReadOwn) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rides, err := h.Rides.ListByStudent(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, rideToView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rides": out})
}

// Get returns one of the student's rides.
func (h *StudentRideHandler) Get(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ride, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ride.StudentID != actor.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, rideToView(ride))
}

// Cancel rejects the student's own pending ride.
func (h *StudentRideHandler) Cancel(c echo.Context) error {
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

// DriverLocation returns the latest position of the driver on the
// student's accepted ride. 404 when the fix is missing or was pruned
// as stale.
func (h *StudentRideHandler) DriverLocation(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ride, err := h.Rides.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ride.StudentID != actor.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if ride.DriverID == nil || ride.Status != lifecycle.StatusAccepted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no driver en route"})
	}

	loc, err := h.Locations.Latest(ctx, *ride.DriverID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no recent location"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"driver_id":   loc.DriverID,
		"latitude":    loc.Latitude,
		"longitude":   loc.Longitude,
		"reported_at": loc.ReportedAt.UTC().Format(time.RFC3339),
	})
}
