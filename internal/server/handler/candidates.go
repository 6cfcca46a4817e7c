package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/trademem"
)

// CandidatesHandler serves the candidate ledger endpoints.
type CandidatesHandler struct {
	svc    *trademem.Service
	logger *slog.Logger
}

// NewCandidatesHandler creates a CandidatesHandler over the trade-memory service.
func NewCandidatesHandler(svc *trademem.Service, logger *slog.Logger) *CandidatesHandler {
	return &CandidatesHandler{
		svc:    svc,
		logger: logger.With(slog.String("handler", "candidates")),
	}
}

// ListCandidates returns candidate rows, optionally filtered by status and
// strategy.
// GET /api/candidates
func (h *CandidatesHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.CandidateFilter{
		Status:   domain.CandidateStatus(q.Get("status")),
		Strategy: domain.StrategyID(q.Get("strategy")),
		Limit:    parseLimit(r),
	}
	recs, err := h.svc.ListCandidates(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": recs})
}

// AcceptCandidate records the operator taking a candidate as a trade.
// POST /api/candidates/{id}/accept
func (h *CandidatesHandler) AcceptCandidate(w http.ResponseWriter, r *http.Request) {
	var req trademem.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	trade, err := h.svc.AcceptCandidateAsTrade(r.Context(), r.PathValue("id"), req, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// RejectCandidate records the operator passing on a candidate.
// POST /api/candidates/{id}/reject
func (h *CandidatesHandler) RejectCandidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.RejectCandidate(r.Context(), r.PathValue("id"), req.Note, time.Now()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
