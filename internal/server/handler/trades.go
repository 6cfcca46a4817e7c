package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/trademem"
)

// TradesHandler serves the trade ledger endpoints.
type TradesHandler struct {
	svc    *trademem.Service
	logger *slog.Logger
}

// NewTradesHandler creates a TradesHandler over the trade-memory service.
func NewTradesHandler(svc *trademem.Service, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{
		svc:    svc,
		logger: logger.With(slog.String("handler", "trades")),
	}
}

// ListTrades returns trade rows, optionally filtered by status and strategy.
// GET /api/trades
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.TradeFilter{
		Status:   domain.TradeStatus(q.Get("status")),
		Strategy: domain.StrategyID(q.Get("strategy")),
		Limit:    parseLimit(r),
	}
	recs, err := h.svc.ListTrades(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": recs})
}

// GetTrade returns one trade row.
// GET /api/trades/{id}
func (h *TradesHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.svc.GetTrade(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// CloseTrade settles an open trade at the operator's reported close price.
// POST /api/trades/{id}/close
func (h *TradesHandler) CloseTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClosePrice float64 `json:"close_price"`
		Reason     string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		req.Reason = "manual close"
	}
	trade, err := h.svc.CloseTrade(r.Context(), r.PathValue("id"), req.ClosePrice, req.Reason, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}
