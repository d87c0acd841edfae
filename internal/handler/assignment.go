package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/repository"
)

// AssignmentHandler is the admin surface for pairing helpers with
// students. A student holds at most one active assignment at a time.
type AssignmentHandler struct {
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
}

func NewAssignmentHandler(a *repository.AssignmentRepo, u *repository.UserRepo) *AssignmentHandler {
	return &AssignmentHandler{Assignments: a, Users: u}
}

type createAssignmentReq struct {
	HelperID  uint64 `json:"helper_id" validate:"required"`
	StudentID uint64 `json:"student_id" validate:"required"`
}

type assignmentView struct {
	ID        uint64 `json:"id"`
	HelperID  uint64 `json:"helper_id"`
	StudentID uint64 `json:"student_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func assignmentToView(a model.Assignment) assignmentView {
	return assignmentView{
		ID:        a.ID,
		HelperID:  a.HelperID,
		StudentID: a.StudentID,
		Status:    a.Status,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create pairs a helper with a student. 409 when the student already
// has an active assignment.
func (h *AssignmentHandler) Create(c echo.Context) error {
	var req createAssignmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	helper, err := h.Users.GetByID(ctx, req.HelperID)
	if err != nil || helper.Role != model.RoleHelper {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "helper_id is not a helper"})
	}
	student, err := h.Users.GetByID(ctx, req.StudentID)
	if err != nil || student.Role != model.RoleStudent {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id is not a student"})
	}

	id, err := h.Assignments.Create(ctx, req.HelperID, req.StudentID)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "student already has an active assignment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create assignment failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Deactivate ends an active assignment.
func (h *AssignmentHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Assignments.Deactivate(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "assignment not active"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "assignment deactivated"})
}

// List returns every assignment for the admin overview.
func (h *AssignmentHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	assignments, err := h.Assignments.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]assignmentView, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentToView(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": out})
}

// MyStudents returns the helper's active assignments.
func (h *AssignmentHandler) MyStudents(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	assignments, err := h.Assignments.ListByHelper(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]assignmentView, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentToView(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": out})
}

// MyHelper returns the student's current helper, if any.
func (h *AssignmentHandler) MyHelper(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Assignments.ActiveForStudent(ctx, actor.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active assignment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	helper, err := h.Users.GetByID(ctx, a.HelperID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load helper failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"assignment": assignmentToView(a),
		"helper": echo.Map{
			"id":        helper.ID,
			"full_name": helper.FullName,
			"email":     helper.Email,
			"phone":     helper.Phone,
		},
	})
}
