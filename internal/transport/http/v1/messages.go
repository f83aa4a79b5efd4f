package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// CreateMessageRequest is the body of a message creation.
type CreateMessageRequest struct {
	Role     domain.Role    `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateMessage appends a message to a thread.
// POST /api/message?session_id=&thread_id=
func (h *Handler) CreateMessage(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}

	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	msg, err := h.service.AppendMessage(ctx, sessionID, threadID, req.Role, req.Content, req.Metadata)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, msg)
}

// ListMessages returns the messages of a thread.
// GET /api/message?session_id=&thread_id=&since_id=&limit=
func (h *Handler) ListMessages(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}

	var sinceID *int
	since, set, err := intParam(c, "since_id")
	if err != nil {
		return badRequest(c, "since_id must be an integer")
	}
	if set {
		sinceID = &since
	}
	limit, _, err := intParam(c, "limit")
	if err != nil {
		return badRequest(c, "limit must be an integer")
	}

	ctx := c.Request().Context()
	messages, err := h.service.ListMessages(ctx, sessionID, threadID, sinceID, limit)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, messages)
}

// UpdateMessage patches one message.
// PATCH /api/message?session_id=&thread_id=&message_id=
func (h *Handler) UpdateMessage(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}
	messageID, set, err := intParam(c, "message_id")
	if err != nil || !set {
		return badRequest(c, "message_id must be an integer")
	}

	var patch domain.MessagePatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	updated, err := h.service.UpdateMessage(ctx, sessionID, threadID, messageID, patch)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": updated})
}

// DeleteMessage removes one message, or clears the thread when no
// message_id is given.
// DELETE /api/message?session_id=&thread_id=&message_id=
func (h *Handler) DeleteMessage(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}
	messageID, set, err := intParam(c, "message_id")
	if err != nil {
		return badRequest(c, "message_id must be an integer")
	}

	ctx := c.Request().Context()
	var deleted bool
	if set {
		deleted, err = h.service.DeleteMessage(ctx, sessionID, threadID, messageID)
	} else {
		deleted, err = h.service.ClearThread(ctx, sessionID, threadID)
	}
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": deleted})
}
