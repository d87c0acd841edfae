package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/repository"
)

// MessageHandler provides direct messaging between a student and their
// assigned helper. Sends are gated on an active assignment between the
// two parties; admins may message anyone.
type MessageHandler struct {
	Messages    *repository.MessageRepo
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
}

func NewMessageHandler(m *repository.MessageRepo, a *repository.AssignmentRepo, u *repository.UserRepo) *MessageHandler {
	return &MessageHandler{Messages: m, Assignments: a, Users: u}
}

type sendMessageReq struct {
	ReceiverID uint64 `json:"receiver_id" validate:"required"`
	Body       string `json:"body" validate:"required,max=2000"`
}

type messageView struct {
	ID         uint64  `json:"id"`
	SenderID   uint64  `json:"sender_id"`
	ReceiverID uint64  `json:"receiver_id"`
	Body       string  `json:"body"`
	ReadAt     *string `json:"read_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func messageToView(m model.Message) messageView {
	v := messageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.ReadAt != nil {
		s := m.ReadAt.UTC().Format(time.RFC3339)
		v.ReadAt = &s
	}
	return v
}

// Send delivers a message to the other party of an active assignment.
func (h *MessageHandler) Send(c echo.Context) error {
	actor := actorFrom(c)

	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.ReceiverID == actor.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.ReceiverID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "receiver not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	allowed, err := h.mayMessage(c, actor.ID, actor.Role, req.ReceiverID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no active assignment with receiver"})
	}

	m := model.Message{
		SenderID:   actor.ID,
		ReceiverID: req.ReceiverID,
		Body:       strings.TrimSpace(req.Body),
	}
	id, err := h.Messages.Create(ctx, &m)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send failed"})
	}
	created, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusCreated, messageToView(created))
}

// Conversation returns the full exchange with another user, oldest
// first.
func (h *MessageHandler) Conversation(c echo.Context) error {
	actor := actorFrom(c)
	otherID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	messages, err := h.Messages.Conversation(ctx, actor.ID, otherID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]messageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToView(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}

// Inbox returns received messages, newest first.
func (h *MessageHandler) Inbox(c echo.Context) error {
	actor := actorFrom(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	messages, err := h.Messages.Inbox(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]messageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToView(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out})
}

// MarkRead flags a received message as read. Only the receiver may do
// this.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	actor := actorFrom(c)
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	changed, err := h.Messages.MarkRead(ctx, id, actor.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		if err == repository.ErrForbidden {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": changed})
}

// mayMessage reports whether sender and receiver share an active
// helper-student assignment. Admins bypass the check so they can reach
// any user.
func (h *MessageHandler) mayMessage(c echo.Context, senderID uint64, senderRole string, receiverID uint64) (bool, error) {
	if senderRole == model.RoleAdmin {
		return true, nil
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch senderRole {
	case model.RoleHelper:
		return h.Assignments.IsAssigned(ctx, senderID, receiverID)
	case model.RoleStudent:
		ok, err := h.Assignments.IsAssigned(ctx, receiverID, senderID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		// Students may always reach an admin.
		receiver, err := h.Users.GetByID(ctx, receiverID)
		if err != nil {
			return false, err
		}
		return receiver.Role == model.RoleAdmin, nil
	default:
		// Drivers coordinate through ride state, not chat.
		receiver, err := h.Users.GetByID(ctx, receiverID)
		if err != nil {
			return false, err
		}
		return receiver.Role == model.RoleAdmin, nil
	}
}
