package handler

import (
	"log/slog"
	"net/http"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/trademem"
)

// EventsHandler serves the append-only trade event log.
type EventsHandler struct {
	svc    *trademem.Service
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler over the trade-memory service.
func NewEventsHandler(svc *trademem.Service, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		svc:    svc,
		logger: logger.With(slog.String("handler", "events")),
	}
}

// ListEvents returns recent events, optionally filtered by repeated type
// parameters.
// GET /api/events
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var types []domain.EventType
	for _, t := range r.URL.Query()["type"] {
		types = append(types, domain.EventType(t))
	}
	events, err := h.svc.ListTradeEvents(r.Context(), parseLimit(r), types...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
