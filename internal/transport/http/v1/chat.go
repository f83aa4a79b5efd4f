package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	Query  string `json:"query"`
	Append bool   `json:"append"`
}

// Chat asks the LLM about a thread. With a query, the recent thread is sent
// as history and the query last; a query already posted to the thread is
// therefore sent twice. Without one, the last thread message is the prompt.
// POST /api/chat?session_id=&thread_id=
func (h *Handler) Chat(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	result, err := h.service.Chat(ctx, sessionID, threadID, req.Query, req.Append)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
