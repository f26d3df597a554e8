package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/model"
	"github.com/wonny/futuquant/pkg/logger"
)

// Runner ties the market data source, the feature bridge and the model
// into one prediction cycle.
// ⭐ SSOT: 예측 루프는 러너에서만
type Runner struct {
	source    features.RowSource
	bridge    *features.Bridge
	predictor model.Predictor
	server    *metrics.Server
	interval  time.Duration
	logger    *logger.Logger
}

// NewRunner creates a stream runner. server is optional; when set it
// is started by Run and shut down when the loop exits.
func NewRunner(source features.RowSource, bridge *features.Bridge, predictor model.Predictor,
	server *metrics.Server, interval time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		source:    source,
		bridge:    bridge,
		predictor: predictor,
		server:    server,
		interval:  interval,
		logger:    log,
	}
}

// RunOnce fetches the latest frame, builds the feature row and scores
// it. The sanitisation report from the bridge feeds the logged nan rate.
func (r *Runner) RunOnce(ctx context.Context) (float64, error) {
	row, report, err := r.bridge.BuildLatestRow(ctx, r.source)
	if err != nil {
		return 0, fmt.Errorf("build feature row: %w", err)
	}

	prob, err := r.predictor.Predict(row.Values)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}

	r.logger.Infof("prediction %.3f, nan rate %.3f", prob, report.NaNRatio)
	return prob, nil
}

// Run starts the metrics server when configured and scores on every
// tick until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.server != nil {
		go func() {
			if err := r.server.Start(); err != nil {
				r.logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.server.Shutdown(shutdownCtx); err != nil {
				r.logger.WithError(err).Warn("Metrics server shutdown failed")
			}
		}()
	}

	r.logger.WithField("interval", r.interval.String()).Info("Stream runner started")

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.WithError(err).Error("Prediction cycle failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stream runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.WithError(err).Error("Prediction cycle failed")
			}
		}
	}
}
