package voter

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/internal/alerts"
	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// Runner evaluates every configured symbol on an interval and pushes
// the outcomes to metrics, storage and alerting.
type Runner struct {
	engine  *Engine
	cfg     *strategyconfig.Config
	metrics *metrics.Metrics
	alerts  *alerts.Manager
	repo    *Repository
	logger  *logger.Logger
}

// NewRunner creates a voter runner. metrics and repo are optional.
func NewRunner(engine *Engine, cfg *strategyconfig.Config, m *metrics.Metrics,
	am *alerts.Manager, repo *Repository, log *logger.Logger) *Runner {
	return &Runner{
		engine:  engine,
		cfg:     cfg,
		metrics: m,
		alerts:  am,
		repo:    repo,
		logger:  log,
	}
}

// RunOnce evaluates all configured symbols one time. Per-symbol
// failures are logged and skipped; the cycle only errors when no
// symbol produced a vote.
func (r *Runner) RunOnce(ctx context.Context) error {
	symbols := r.cfg.ActiveSymbols()
	failed := 0

	for _, symbol := range symbols {
		vote, err := r.engine.EvaluateSymbol(ctx, symbol)
		if err != nil {
			failed++
			r.logger.WithError(err).WithField("symbol", symbol).Error("Vote evaluation failed")
			continue
		}
		r.observe(ctx, vote)
	}

	if failed == len(symbols) {
		return fmt.Errorf("all %d symbols failed", failed)
	}
	return nil
}

// Run evaluates immediately, then on every interval tick until the
// context ends.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.cfg.Voter.Interval()
	r.logger.WithFields(map[string]interface{}{
		"symbols":  r.cfg.ActiveSymbols(),
		"interval": interval.String(),
	}).Info("Voter runner started")

	if err := r.RunOnce(ctx); err != nil {
		r.logger.WithError(err).Error("Voter cycle failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Voter runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.WithError(err).Error("Voter cycle failed")
			}
		}
	}
}

// observe publishes one vote to every sink.
func (r *Runner) observe(ctx context.Context, vote *contracts.Vote) {
	r.logger.WithFields(map[string]interface{}{
		"symbol": vote.Symbol,
		"signal": vote.Signal.String(),
		"score":  vote.Score,
		"passed": vote.RulesPassed,
		"total":  vote.RulesEvaluated,
	}).Info("Vote evaluated")

	if r.metrics != nil {
		r.metrics.ObserveVote(vote)
	}

	if r.repo != nil {
		if err := r.repo.Save(ctx, vote); err != nil {
			r.logger.WithError(err).WithField("symbol", vote.Symbol).Warn("Vote snapshot not persisted")
		}
	}

	if vote.UnrealizedPnL <= r.cfg.Alerts.MinUnrealizedPnL {
		r.alerts.Send(ctx, alerts.EventPnLDrop, map[string]interface{}{
			"symbol": vote.Symbol,
			"pnl":    vote.UnrealizedPnL,
		})
	}
	if vote.Score <= r.cfg.Alerts.MinVoterScore {
		r.alerts.Send(ctx, alerts.EventScoreTooLow, map[string]interface{}{
			"symbol": vote.Symbol,
			"score":  vote.Score,
		})
	}
}
