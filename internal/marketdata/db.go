package marketdata

import (
	"context"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/strategyconfig"
)

// DBSource serves market data previously persisted by the collector.
type DBSource struct {
	repo *Repository
	cfg  strategyconfig.Futu
}

var _ Source = (*DBSource)(nil)

// NewDBSource creates a repository-backed source
func NewDBSource(repo *Repository, cfg strategyconfig.Futu) *DBSource {
	return &DBSource{repo: repo, cfg: cfg}
}

// Klines reads bars from the candle repository.
func (s *DBSource) Klines(ctx context.Context, symbol, ktype string, num int) ([]contracts.Candle, error) {
	return s.repo.GetLatest(ctx, symbol, ktype, num)
}

// LatestFrame reduces the stored history to the latest feature row.
func (s *DBSource) LatestFrame(ctx context.Context) (*features.Frame, error) {
	candles, err := s.Klines(ctx, s.cfg.Symbol, s.cfg.KType, s.cfg.KNum)
	if err != nil {
		return nil, err
	}
	return latestFrame(candles)
}
