package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/repository"
)

// ComplaintHandler lets any non-admin user file a complaint and an
// admin take ownership and close it with a resolution note.
type ComplaintHandler struct {
	Complaints *repository.ComplaintRepo
	Ctrl       *lifecycle.Controller
}

func NewComplaintHandler(r *repository.ComplaintRepo, ctrl *lifecycle.Controller) *ComplaintHandler {
	return &ComplaintHandler{Complaints: r, Ctrl: ctrl}
}

type createComplaintReq struct {
	Subject     string `json:"subject" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type resolveReq struct {
	Resolution string `json:"resolution" validate:"required"`
}

type complaintView struct {
	ID          uint64  `json:"id"`
	ReporterID  uint64  `json:"reporter_id"`
	AdminID     *uint64 `json:"admin_id,omitempty"`
	Subject     string  `json:"subject"`
	Description string  `json:"description"`
	Resolution  string  `json:"resolution,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func complaintToView(cm model.Complaint) complaintView {
	return complaintView{
		ID:          cm.ID,
		ReporterID:  cm.ReporterID,
		AdminID:     cm.AdminID,
		Subject:     cm.Subject,
		Description: cm.Description,
		Resolution:  cm.Resolution,
		Status:      cm.Status,
		CreatedAt:   cm.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   cm.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create files a complaint.
func (h *ComplaintHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindComplaint, policy.ActionCreate) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req createComplaintReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cm := model.Complaint{
		ReporterID:  actor.ID,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Status:      lifecycle.StatusPending,
	}
	id, err := h.Complaints.Create(ctx, &cm)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create complaint failed"})
	}
	created, err := h.Complaints.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load complaint failed"})
	}
	return c.JSON(http.StatusCreated, complaintToView(created))
}

// ListMine returns the caller's own complaints.
func (h *ComplaintHandler) ListMine(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindComplaint, policy.ActionReadOwn) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	complaints, err := h.Complaints.ListByReporter(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]complaintView, 0, len(complaints))
	for _, cm := range complaints {
		out = append(out, complaintToView(cm))
	}
	return c.JSON(http.StatusOK, echo.Map{"complaints": out})
}

// ListOpen returns unresolved complaints for the admin board, oldest
// first.
func (h *ComplaintHandler) ListOpen(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindComplaint, policy.ActionReadAssigned) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	complaints, err := h.Complaints.ListOpen(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]complaintView, 0, len(complaints))
	for _, cm := range complaints {
		out = append(out, complaintToView(cm))
	}
	return c.JSON(http.StatusOK, echo.Map{"complaints": out})
}

// Accept has an admin take ownership of a pending complaint.
func (h *ComplaintHandler) Accept(c echo.Context) error {
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
	cm, err := h.Complaints.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load complaint failed"})
	}
	return c.JSON(http.StatusOK, complaintToView(cm))
}

// Dismiss rejects a pending complaint, or lets the reporter withdraw
// their own.
func (h *ComplaintHandler) Dismiss(c echo.Context) error {
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
	cm, err := h.Complaints.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load complaint failed"})
	}
	return c.JSON(http.StatusOK, complaintToView(cm))
}

// Resolve completes an accepted complaint with a resolution note. The
// transition commits first; the note is recorded after, keyed on the
// owning admin.
func (h *ComplaintHandler) Resolve(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Ctrl.Complete(ctx, actor, id); err != nil {
		return writeLifecycleError(c, err)
	}
	if err := h.Complaints.SetResolution(ctx, id, actor.ID, strings.TrimSpace(req.Resolution)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save resolution failed"})
	}
	cm, err := h.Complaints.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load complaint failed"})
	}
	return c.JSON(http.StatusOK, complaintToView(cm))
}
