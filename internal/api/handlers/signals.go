package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/logger"
)

// SignalsHandler serves persisted voter outcomes
// ⭐ SSOT: 시그널 API 핸들러는 이 구조체에서만
type SignalsHandler struct {
	votes  *voter.Repository
	logger *logger.Logger
}

// NewSignalsHandler creates a new signals handler
func NewSignalsHandler(votes *voter.Repository, log *logger.Logger) *SignalsHandler {
	return &SignalsHandler{
		votes:  votes,
		logger: log,
	}
}

// GetAll returns the latest vote per symbol
// GET /api/v1/signals
func (h *SignalsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	votes, err := h.votes.GetLatestAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest votes")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(votes),
		"signals": votes,
	})
}

// GetBySymbol returns the vote history for one symbol, newest first.
// ?limit=N caps the history (default 1: just the latest vote).
// GET /api/v1/signals/{symbol}
func (h *SignalsHandler) GetBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit (expected positive integer)")
			return
		}
		limit = n
	}

	votes, err := h.votes.GetHistory(r.Context(), symbol, limit)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load vote history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signal history")
		return
	}
	if len(votes) == 0 {
		respondError(w, http.StatusNotFound, "No signals for symbol")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"count":   len(votes),
		"signals": votes,
	})
}
