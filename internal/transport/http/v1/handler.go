// Package v1 provides the HTTP handlers of the search state service.
package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/hub"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/service"
)

// SheetAdmin exposes the cached upstream sheets.
type SheetAdmin interface {
	KOLInfo(ctx context.Context) ([]domain.MetadataRecord, error)
	KOLData(ctx context.Context) ([]domain.ContentRecord, error)
	Refresh(ctx context.Context) error
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *hub.Hub
	sheets  SheetAdmin
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, h *hub.Hub, sheets SheetAdmin) *Handler {
	return &Handler{
		service: service,
		hub:     h,
		sheets:  sheets,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	// Sessions
	api.GET("/session", h.GetOrCreateSession)
	api.DELETE("/session", h.DeleteSession)

	// Messages
	api.POST("/message", h.CreateMessage)
	api.GET("/message", h.ListMessages)
	api.PATCH("/message", h.UpdateMessage)
	api.DELETE("/message", h.DeleteMessage)

	// Saved searches
	api.POST("/saved_search", h.CreateSavedSearch)
	api.GET("/saved_search", h.ListSavedSearches)
	api.PATCH("/saved_search", h.UpdateSavedSearch)
	api.DELETE("/saved_search", h.DeleteSavedSearch)
	api.POST("/saved_search/run", h.RunSavedSearch)

	// Pipeline and LLM
	api.POST("/enrich", h.Enrich)
	api.GET("/enrich", h.GetEnrichedDocument)
	api.POST("/chat", h.Chat)

	// Sheets
	api.GET("/sheet/kol-info", h.GetKOLInfo)
	api.GET("/sheet/kol-data", h.GetKOLData)
	api.POST("/sheet/refresh", h.RefreshSheets)

	api.GET("/ws", h.Watch)

	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
}

// Ping reports that the process is up.
func (h *Handler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports cache liveness.
func (h *Handler) Health(c echo.Context) error {
	if !h.service.CacheAlive(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":      "unhealthy",
			"cache_alive": false,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"cache_alive": true,
	})
}

// errorResponse maps a service error to its status code.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCacheUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// requiredParam returns a non-empty query parameter, trying each name in
// turn.
func requiredParam(c echo.Context, names ...string) (string, bool) {
	for _, name := range names {
		if v := c.QueryParam(name); v != "" {
			return v, true
		}
	}
	return "", false
}

func intParam(c echo.Context, name string) (int, bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func boolParam(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

// threadParams reads session_id and thread_id. Extra names are accepted as
// aliases of thread_id.
func threadParams(c echo.Context, threadAliases ...string) (string, string, bool) {
	sessionID, ok := requiredParam(c, "session_id")
	if !ok {
		return "", "", false
	}
	threadID, ok := requiredParam(c, append([]string{"thread_id"}, threadAliases...)...)
	if !ok {
		return "", "", false
	}
	return sessionID, threadID, true
}

const errThreadParams = "session_id and thread_id are required"
