package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// EnrichRequest is the body of a pipeline run. Zero-valued params disable
// the matching filter.
type EnrichRequest struct {
	Params domain.SearchQuery `json:"params"`
	Append bool               `json:"append"`
}

// Enrich runs the filtering pipeline for the given params.
// POST /api/enrich?session_id=&thread_id=
func (h *Handler) Enrich(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}

	var req EnrichRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Params.Tags = domain.NormalizeTags(req.Params.Tags)

	ctx := c.Request().Context()
	result, err := h.service.Enrich(ctx, sessionID, threadID, req.Params, req.Append)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetEnrichedDocument returns the cached document of a thread.
// GET /api/enrich?session_id=&thread_id=
func (h *Handler) GetEnrichedDocument(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c, "search_id")
	if !ok {
		return badRequest(c, errThreadParams)
	}

	ctx := c.Request().Context()
	doc, err := h.service.GetEnrichedDocument(ctx, sessionID, threadID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"document": doc})
}
