package handler

import (
	"context"
	"log/slog"
	"net/http"

	"spreadpilot/internal/domain"
)

// TickRunner runs one evaluation tick on demand. The app wires its full tick
// function (snapshot, engine, ledger reconciliation, alerts) behind this.
type TickRunner interface {
	RunTick(ctx context.Context) (domain.DecisionOutput, error)
}

// LastDecision exposes the most recent decision output.
type LastDecision interface {
	Last() (domain.DecisionOutput, bool)
}

// DecisionHandler serves the decision endpoints.
type DecisionHandler struct {
	runner TickRunner
	last   LastDecision
	logger *slog.Logger
}

// NewDecisionHandler creates a DecisionHandler.
func NewDecisionHandler(runner TickRunner, last LastDecision, logger *slog.Logger) *DecisionHandler {
	return &DecisionHandler{
		runner: runner,
		last:   last,
		logger: logger.With(slog.String("handler", "decision")),
	}
}

// GetDecision returns the most recent decision output.
// GET /api/decision
func (h *DecisionHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	out, ok := h.last.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no evaluation has run yet")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Evaluate forces a full evaluation tick and returns its output.
// POST /api/evaluate
func (h *DecisionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	out, err := h.runner.RunTick(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual tick failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
