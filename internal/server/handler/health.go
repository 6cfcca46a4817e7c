package handler

import (
	"log/slog"
	"net/http"
	"time"

	"spreadpilot/internal/feed"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feed   *feed.AvailabilityCheck
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided feed check and
// logger.
func NewHealthHandler(feedCheck *feed.AvailabilityCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{feed: feedCheck, logger: logger}
}

// HealthCheck responds with the server status and the snapshot feed's
// cached availability.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"feed":      h.feed.Check(r.Context()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
