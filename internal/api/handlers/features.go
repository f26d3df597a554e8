package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/pkg/logger"
)

// FeaturesHandler serves the sanitised feature row and the debug probe
// ⭐ SSOT: 피처 API 핸들러는 이 구조체에서만
type FeaturesHandler struct {
	bridge *features.Bridge
	probe  *features.Probe
	source features.RowSource
	logger *logger.Logger
}

// NewFeaturesHandler creates a new features handler
func NewFeaturesHandler(bridge *features.Bridge, probe *features.Probe,
	source features.RowSource, log *logger.Logger) *FeaturesHandler {
	return &FeaturesHandler{
		bridge: bridge,
		probe:  probe,
		source: source,
		logger: log,
	}
}

// GetLatest builds and returns the newest model-ready row together
// with the sanitisation report.
// GET /api/v1/features/latest
func (h *FeaturesHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	row, report, err := h.bridge.BuildLatestRow(r.Context(), h.source)
	if err != nil {
		if errors.Is(err, features.ErrEmptyFrame) {
			respondError(w, http.StatusServiceUnavailable, "No market data available")
			return
		}
		h.logger.WithError(err).Error("Feature build failed")
		respondError(w, http.StatusInternalServerError, "Failed to build feature row")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"row":    row,
		"report": report,
	})
}

// ProbeRequest configures an on-demand probe run.
type ProbeRequest struct {
	OutDir string `json:"out_dir"` // where debug_X.npy / debug_report.json land
}

// RunProbe runs the debug probe and returns its report. Artifacts are
// written to out_dir (default ./reports), same files the CLI writes.
// POST /api/v1/probe
func (h *FeaturesHandler) RunProbe(w http.ResponseWriter, r *http.Request) {
	var req ProbeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OutDir == "" {
		req.OutDir = "reports"
	}

	report, err := h.probe.Run(r.Context(), req.OutDir)
	if err != nil {
		h.logger.WithError(err).Error("Probe run failed")
		respondError(w, http.StatusInternalServerError, "Probe run failed")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
