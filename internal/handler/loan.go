package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/repository"
)

// LoanHandler manages assistive gadget loans. A student requests a
// device, an admin approves with a due date (the device is handed
// out) and completes the loan when it comes back.
type LoanHandler struct {
	Loans *repository.LoanRepo
	Ctrl  *lifecycle.Controller
}

func NewLoanHandler(r *repository.LoanRepo, ctrl *lifecycle.Controller) *LoanHandler {
	return &LoanHandler{Loans: r, Ctrl: ctrl}
}

type createLoanReq struct {
	Gadget string `json:"gadget" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type approveLoanReq struct {
	DueAt time.Time `json:"due_at" validate:"required"`
}

type loanView struct {
	ID         uint64  `json:"id"`
	StudentID  uint64  `json:"student_id"`
	AdminID    *uint64 `json:"admin_id,omitempty"`
	Gadget     string  `json:"gadget"`
	Reason     string  `json:"reason"`
	DueAt      *string `json:"due_at,omitempty"`
	ReturnedAt *string `json:"returned_at,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func loanToView(l model.GadgetLoan) loanView {
	v := loanView{
		ID:        l.ID,
		StudentID: l.StudentID,
		AdminID:   l.AdminID,
		Gadget:    l.Gadget,
		Reason:    l.Reason,
		Status:    l.Status,
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if l.DueAt != nil {
		s := l.DueAt.UTC().Format(time.RFC3339)
		v.DueAt = &s
	}
	if l.ReturnedAt != nil {
		s := l.ReturnedAt.UTC().Format(time.RFC3339)
		v.ReturnedAt = &s
	}
	return v
}

// Create files a loan request.
func (h *LoanHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindLoan, policy.ActionCreate) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	l := model.GadgetLoan{
		StudentID: actor.ID,
		Gadget:    strings.TrimSpace(req.Gadget),
		Reason:    strings.TrimSpace(req.Reason),
		Status:    lifecycle.StatusPending,
	}
	id, err := h.Loans.Create(ctx, &l)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create loan failed"})
	}
	created, err := h.Loans.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load loan failed"})
	}
	return c.JSON(http.StatusCreated, loanToView(created))
}

// ListMine returns the student's own loans.
func (h *LoanHandler) ListMine(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindLoan, policy.ActionReadOwn) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	loans, err := h.Loans.ListByStudent(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]loanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, loanToView(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"loans": out})
}

// ListOpen returns pending and outstanding loans for the admin board.
func (h *LoanHandler) ListOpen(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindLoan, policy.ActionReadAssigned) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	loans, err := h.Loans.ListOpen(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]loanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, loanToView(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"loans": out})
}

// Approve accepts a pending loan and stamps the return date. The
// device changes hands when this succeeds.
func (h *LoanHandler) Approve(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req approveLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.DueAt.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "due_at must be in the future"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Ctrl.Accept(ctx, actor, id); err != nil {
		return writeLifecycleError(c, err)
	}
	if err := h.Loans.SetDueDate(ctx, id, actor.ID, req.DueAt.UTC()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save due date failed"})
	}
	l, err := h.Loans.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load loan failed"})
	}
	return c.JSON(http.StatusOK, loanToView(l))
}

// Deny rejects a pending loan, or lets the student withdraw their own
// request.
func (h *LoanHandler) Deny(c echo.Context) error {
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
	l, err := h.Loans.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load loan failed"})
	}
	return c.JSON(http.StatusOK, loanToView(l))
}

// MarkReturned completes the loan when the device comes back; the
// store stamps returned_at in the same write.
func (h *LoanHandler) MarkReturned(c echo.Context) error {
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
	l, err := h.Loans.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load loan failed"})
	}
	return c.JSON(http.StatusOK, loanToView(l))
}
