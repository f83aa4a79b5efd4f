package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetKOLInfo returns the cached account metadata sheet.
// GET /api/sheet/kol-info
func (h *Handler) GetKOLInfo(c echo.Context) error {
	records, err := h.sheets.KOLInfo(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"records": records})
}

// GetKOLData returns the cached content sheet.
// GET /api/sheet/kol-data
func (h *Handler) GetKOLData(c echo.Context) error {
	records, err := h.sheets.KOLData(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"records": records})
}

// RefreshSheets reloads every upstream sheet into the cache.
// POST /api/sheet/refresh
func (h *Handler) RefreshSheets(c echo.Context) error {
	if err := h.sheets.Refresh(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
