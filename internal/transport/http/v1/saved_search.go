package v1

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

func searchIDParam(c echo.Context) (int, bool) {
	id, set, err := intParam(c, "search_id")
	if err != nil || !set {
		return 0, false
	}
	return id, true
}

// CreateSavedSearch stores a new saved search.
// POST /api/saved_search?session_id=
func (h *Handler) CreateSavedSearch(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}

	var input domain.SavedSearchInput
	if err := c.Bind(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	saved, err := h.service.CreateSavedSearch(ctx, sessionID, input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, saved)
}

// ListSavedSearches returns the saved searches of a session.
// GET /api/saved_search?session_id=
func (h *Handler) ListSavedSearches(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}

	ctx := c.Request().Context()
	searches, err := h.service.ListSavedSearches(ctx, sessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, searches)
}

// UpdateSavedSearch merges the request body into a saved search.
// PATCH /api/saved_search?session_id=&search_id=
func (h *Handler) UpdateSavedSearch(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return badRequest(c, "search_id must be an integer")
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid request body")
	}
	upd, err := domain.ParseSavedSearchUpdate(raw)
	if err != nil {
		return errorResponse(c, err)
	}

	ctx := c.Request().Context()
	updated, err := h.service.UpdateSavedSearch(ctx, sessionID, searchID, upd)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":      updated != nil,
		"saved_search": updated,
	})
}

// DeleteSavedSearch removes a saved search.
// DELETE /api/saved_search?session_id=&search_id=
func (h *Handler) DeleteSavedSearch(c echo.Context) error {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return badRequest(c, "session_id is required")
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return badRequest(c, "search_id must be an integer")
	}

	ctx := c.Request().Context()
	deleted, err := h.service.DeleteSavedSearch(ctx, sessionID, searchID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": deleted})
}

// RunSavedSearch runs the pipeline with a stored saved search.
// POST /api/saved_search/run?session_id=&thread_id=&search_id=&append=
func (h *Handler) RunSavedSearch(c echo.Context) error {
	sessionID, threadID, ok := threadParams(c)
	if !ok {
		return badRequest(c, errThreadParams)
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return badRequest(c, "search_id must be an integer")
	}

	ctx := c.Request().Context()
	result, err := h.service.RunSavedSearch(ctx, sessionID, threadID, searchID, boolParam(c, "append"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
