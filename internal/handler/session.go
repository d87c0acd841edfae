package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/lifecycle"
	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/policy"
	"github.com/uniaccess/campus-assist/internal/queue"
	"github.com/uniaccess/campus-assist/internal/repository"
	queuepub "github.com/uniaccess/campus-assist/internal/service"
	"github.com/uniaccess/campus-assist/internal/utils"
)

// codeLength is the number of digits in a session verification code.
const codeLength = 6

// SessionHandler manages help sessions. A student requests help, a
// helper accepts, the student reveals a one-time code at the meeting,
// and the helper closes the session with it. The code is the proof
// the two actually met.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Ctrl     *lifecycle.Controller
	CodeTTL  time.Duration

	publishConfirmed func(ctx context.Context, ev queue.SessionConfirmedEvent) error
}

func NewSessionHandler(s *repository.SessionRepo, ctrl *lifecycle.Controller, codeTTLMin int) *SessionHandler {
	return &SessionHandler{
		Sessions:         s,
		Ctrl:             ctrl,
		CodeTTL:          time.Duration(codeTTLMin) * time.Minute,
		publishConfirmed: queuepub.PublishSessionConfirmed,
	}
}

type createSessionReq struct {
	Subject      string `json:"subject" validate:"required"`
	MeetingPlace string `json:"meeting_place" validate:"required"`
}

type sessionView struct {
	ID           uint64  `json:"id"`
	StudentID    uint64  `json:"student_id"`
	HelperID     *uint64 `json:"helper_id,omitempty"`
	Subject      string  `json:"subject"`
	MeetingPlace string  `json:"meeting_place"`
	Status       string  `json:"status"`
	CodeIssued   bool    `json:"code_issued"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func sessionToView(s model.HelpSession) sessionView {
	return sessionView{
		ID:           s.ID,
		StudentID:    s.StudentID,
		HelperID:     s.HelperID,
		Subject:      s.Subject,
		MeetingPlace: s.MeetingPlace,
		Status:       s.Status,
		CodeIssued:   s.CodeHash != nil,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create files a help session request.
func (h *SessionHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindSession, policy.ActionCreate) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s := model.HelpSession{
		StudentID:    actor.ID,
		Subject:      strings.TrimSpace(req.Subject),
		MeetingPlace: strings.TrimSpace(req.MeetingPlace),
		Status:       lifecycle.StatusPending,
	}
	id, err := h.Sessions.Create(ctx, &s)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	created, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	return c.JSON(http.StatusCreated, sessionToView(created))
}

// ListMine returns the caller's sessions: requested ones for a
// student, accepted ones for a helper.
func (h *SessionHandler) ListMine(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		sessions []model.HelpSession
		err      error
	)
	switch actor.Role {
	case model.RoleStudent:
		sessions, err = h.Sessions.ListByStudent(ctx, actor.ID)
	case model.RoleHelper:
		sessions, err = h.Sessions.ListByHelper(ctx, actor.ID)
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionToView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Pending returns unclaimed session requests for helpers to browse.
func (h *SessionHandler) Pending(c echo.Context) error {
	actor := actorFrom(c)
	if !policy.Allowed(actor.Role, policy.KindSession, policy.ActionReadAssigned) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sessions, err := h.Sessions.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionToView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Accept claims a pending session for the helper.
func (h *SessionHandler) Accept(c echo.Context) error {
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
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	return c.JSON(http.StatusOK, sessionToView(s))
}

// Reject refuses a pending session, or cancels the student's own one.
func (h *SessionHandler) Reject(c echo.Context) error {
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
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}
	return c.JSON(http.StatusOK, sessionToView(s))
}

// IssueCode generates a fresh one-time code for the student's accepted
// session. The raw code appears only in this response; the database
// keeps its hash. Re-issuing replaces the previous code.
func (h *SessionHandler) IssueCode(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if s.StudentID != actor.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if s.Status != lifecycle.StatusAccepted || s.HelperID == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session not accepted"})
	}

	code, err := utils.NewVerificationCode(codeLength)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate code failed"})
	}
	expiresAt := time.Now().UTC().Add(h.CodeTTL)

	ok, err := h.Sessions.IssueCode(ctx, id, *s.HelperID, model.HashCode(code), expiresAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save code failed"})
	}
	if !ok {
		// Session changed between read and write.
		return c.JSON(http.StatusConflict, echo.Map{"error": "session not accepted"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"code":       code,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

type confirmReq struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Confirm completes the session. The helper submits the code the
// student revealed at the meeting; the consume-and-complete is a
// single conditional write, so a code works exactly once.
func (h *SessionHandler) Confirm(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Sessions.ConfirmWithCode(ctx, id, actor.ID, model.HashCode(req.Code))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
	if !ok {
		return h.classifyConfirmFailure(c, id, actor.ID, req.Code)
	}

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load session failed"})
	}

	ev := queue.SessionConfirmedEvent{
		SessionID:   s.ID,
		StudentID:   s.StudentID,
		HelperID:    actor.ID,
		Subject:     s.Subject,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = h.publishConfirmed(context.Background(), ev) }()

	return c.JSON(http.StatusOK, sessionToView(s))
}

// classifyConfirmFailure re-reads the session after a failed
// conditional confirm and reports why it did not apply.
func (h *SessionHandler) classifyConfirmFailure(c echo.Context, id, helperID uint64, code string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if s.HelperID == nil || *s.HelperID != helperID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if s.Status != lifecycle.StatusAccepted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid state transition"})
	}

	switch verr := s.VerifyCode(code, time.Now().UTC()); {
	case errors.Is(verr, model.ErrCodeMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification code mismatch"})
	case errors.Is(verr, model.ErrCodeExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "verification code expired"})
	case errors.Is(verr, model.ErrCodeUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "verification code already used"})
	case errors.Is(verr, model.ErrCodeNotIssued):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no verification code issued"})
	default:
		return c.JSON(http.StatusConflict, echo.Map{"error": "confirm failed"})
	}
}
