package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetOrCreateSession returns the session, creating it when needed.
// GET /api/session?session_id=
func (h *Handler) GetOrCreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, session, err := h.service.GetOrCreateSession(ctx, c.QueryParam("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"session":    session,
	})
}

// DeleteSession removes a session and everything it owns.
// DELETE /api/session?session_id=
func (h *Handler) DeleteSession(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}

	ctx := c.Request().Context()
	deleted, err := h.service.DeleteSession(ctx, sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": deleted})
}
