package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"spreadpilot/internal/alertpolicy"
)

// AlertsHandler serves alert acknowledgement.
type AlertsHandler struct {
	policy *alertpolicy.Engine
	logger *slog.Logger
}

// NewAlertsHandler creates an AlertsHandler over the policy engine.
func NewAlertsHandler(policy *alertpolicy.Engine, logger *slog.Logger) *AlertsHandler {
	return &AlertsHandler{
		policy: policy,
		logger: logger.With(slog.String("handler", "alerts")),
	}
}

// AckAlert suppresses an alert fingerprint until its reason text changes.
// The reason in the body must match the alert being acknowledged; a later
// alert with a different reason is delivered again.
// POST /api/alerts/{fingerprint}/ack
func (h *AlertsHandler) AckAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fingerprint := r.PathValue("fingerprint")
	if err := h.policy.Ack(r.Context(), fingerprint, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "alert acknowledged", slog.String("fingerprint", fingerprint))
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
