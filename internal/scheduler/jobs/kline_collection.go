package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/futuquant/internal/external/futu"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// KlineCollectionJob pulls fresh bars from the OpenD gateway and
// persists them so db-backed stages work without a live gateway
// ⭐ SSOT: 캔들 수집 스케줄은 이 Job에서만
type KlineCollectionJob struct {
	client   *futu.Client
	repo     *marketdata.Repository
	strategy *strategyconfig.Config
	logger   *logger.Logger
}

// NewKlineCollectionJob creates a new kline collection job
func NewKlineCollectionJob(client *futu.Client, repo *marketdata.Repository,
	strategy *strategyconfig.Config, log *logger.Logger) *KlineCollectionJob {
	return &KlineCollectionJob{
		client:   client,
		repo:     repo,
		strategy: strategy,
		logger:   log,
	}
}

// Name returns the job name
func (j *KlineCollectionJob) Name() string {
	return "kline_collection"
}

// Schedule returns the cron schedule (top of every hour)
func (j *KlineCollectionJob) Schedule() string {
	return "0 0 * * * *"
}

// Run fetches and upserts recent bars for every configured symbol.
// A symbol that fails is skipped; the job only errors when every
// symbol failed.
func (j *KlineCollectionJob) Run(ctx context.Context) error {
	symbols := j.strategy.ActiveSymbols()
	futuCfg := j.strategy.Futu
	failed := 0

	for _, symbol := range symbols {
		candles, err := j.client.GetKlines(ctx, symbol, futuCfg.KType, futuCfg.KNum, futuCfg.AuType)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("symbol", symbol).Error("Kline fetch failed")
			continue
		}

		if err := j.repo.SaveBatch(ctx, futuCfg.KType, candles); err != nil {
			failed++
			j.logger.WithError(err).WithField("symbol", symbol).Error("Kline save failed")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   len(candles),
		}).Info("Klines collected")
	}

	if failed == len(symbols) {
		return fmt.Errorf("kline collection failed for all %d symbols", failed)
	}
	return nil
}
