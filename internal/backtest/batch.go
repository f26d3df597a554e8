package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/marketdata"
)

// BatchOptions controls a multi-symbol run.
type BatchOptions struct {
	Symbols      []string
	KType        string
	Bars         int
	ShowProgress bool
}

// BatchResult aggregates per-symbol runs and the equal-weight
// portfolio built from them.
type BatchResult struct {
	Results          []*Result
	Candles          map[string][]contracts.Candle
	Portfolio        []EquityPoint
	PortfolioMetrics Metrics
}

// RunBatch backtests every symbol with the ATR-scaled cost model and
// averages the surviving equity curves into an equal-weight portfolio
// over their overlapping timestamps. Symbols whose data cannot be
// fetched are skipped.
func (e *Engine) RunBatch(ctx context.Context, source marketdata.Source, opts BatchOptions) (*BatchResult, error) {
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols to backtest")
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(opts.Symbols)))
	}

	batch := &BatchResult{Candles: make(map[string][]contracts.Candle)}
	for _, symbol := range opts.Symbols {
		candles, err := source.Klines(ctx, symbol, opts.KType, opts.Bars)
		if err != nil {
			e.logger.WithError(err).WithField("symbol", symbol).Warn("Kline fetch failed, skipping symbol")
			e.advance(bar)
			continue
		}

		result, err := e.RunDynamic(ctx, symbol, candles)
		if err != nil {
			return nil, fmt.Errorf("backtest %s: %w", symbol, err)
		}

		batch.Results = append(batch.Results, result)
		batch.Candles[symbol] = candles
		e.advance(bar)
	}

	if len(batch.Results) == 0 {
		return nil, fmt.Errorf("no symbol produced a result")
	}

	batch.Portfolio = equalWeightPortfolio(batch.Results)
	batch.PortfolioMetrics = EquityMetrics(batch.Portfolio, 0)

	return batch, nil
}

func (e *Engine) advance(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	if err := bar.Add(1); err != nil {
		e.logger.Warnf("update progressbar fail: %v", err)
	}
}

// equalWeightPortfolio averages the curves on timestamps present in
// every one of them. Non-overlapping marks are dropped.
func equalWeightPortfolio(results []*Result) []EquityPoint {
	if len(results) == 0 {
		return nil
	}

	type acc struct {
		sum   float64
		count int
	}
	byTime := make(map[time.Time]*acc)
	for _, r := range results {
		for _, p := range r.Equity {
			a := byTime[p.Time]
			if a == nil {
				a = &acc{}
				byTime[p.Time] = a
			}
			a.sum += p.Equity
			a.count++
		}
	}

	out := make([]EquityPoint, 0, len(byTime))
	for ts, a := range byTime {
		if a.count == len(results) {
			out = append(out, EquityPoint{Time: ts, Equity: a.sum / float64(len(results))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
