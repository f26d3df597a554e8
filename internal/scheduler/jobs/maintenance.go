package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/logger"
)

// DefaultRetentionDays keeps roughly two years of daily bars, enough
// for the longest backtest window plus warmup.
const DefaultRetentionDays = 730

// MaintenanceJob prunes candles and vote snapshots past retention
type MaintenanceJob struct {
	candles       *marketdata.Repository
	votes         *voter.Repository
	retentionDays int
	logger        *logger.Logger
}

// NewMaintenanceJob creates a new maintenance job. retentionDays <= 0
// falls back to the default.
func NewMaintenanceJob(candles *marketdata.Repository, votes *voter.Repository,
	retentionDays int, log *logger.Logger) *MaintenanceJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &MaintenanceJob{
		candles:       candles,
		votes:         votes,
		retentionDays: retentionDays,
		logger:        log,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule returns the cron schedule (every day at 3 AM)
func (j *MaintenanceJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run prunes rows older than the retention window
func (j *MaintenanceJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	candles, err := j.candles.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune candles: %w", err)
	}

	votes, err := j.votes.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune votes: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format("2006-01-02"),
		"candles": candles,
		"votes":   votes,
	}).Info("Maintenance completed")

	return nil
}
