package handlers

import (
	"net/http"
	"strconv"

	"github.com/wonny/futuquant/internal/backtest"
	"github.com/wonny/futuquant/pkg/logger"
)

// BacktestHandler serves persisted backtest run summaries
type BacktestHandler struct {
	runs   *backtest.Repository
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(runs *backtest.Repository, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		runs:   runs,
		logger: log,
	}
}

// GetRuns returns recent backtest runs, newest first.
// ?limit=N caps the list (default 20).
// GET /api/v1/backtest/runs
func (h *BacktestHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit (expected positive integer)")
			return
		}
		limit = n
	}

	runs, err := h.runs.GetRecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load backtest runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve backtest runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}
