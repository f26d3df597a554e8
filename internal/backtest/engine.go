package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/rules"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// Trade is one executed side of the long/flat position machine.
type Trade struct {
	Time  time.Time `json:"time"`
	Side  string    `json:"side"`
	Price float64   `json:"price"`
	Qty   float64   `json:"qty"`
	Bps   float64   `json:"bps"`
	Score float64   `json:"score"`
}

// Result holds a completed walk-forward run for one symbol.
type Result struct {
	Symbol  string        `json:"symbol"`
	Bars    int           `json:"bars"`
	Trades  []Trade       `json:"trades"`
	Equity  []EquityPoint `json:"equity"`
	Metrics Metrics       `json:"metrics"`
}

// Engine replays the voting strategy bar by bar.
// ⭐ SSOT: 백테스트 체결 로직은 엔진에서만
//
// Positions are long/flat only. Every bar past the warmup rebuilds the
// rule context on the window up to that bar, so indicators never see
// future data. Buys spend the whole cash balance net of fees, sells
// liquidate the whole position.
type Engine struct {
	ruleSet []strategyconfig.Rule
	funds   map[string]map[string]float64
	cfg     strategyconfig.Backtest
	logger  *logger.Logger
}

// NewEngine creates a backtest engine. funds maps symbol to its
// fundamental ratios and may be nil.
func NewEngine(ruleSet []strategyconfig.Rule, funds map[string]map[string]float64,
	cfg strategyconfig.Backtest, log *logger.Logger) *Engine {
	return &Engine{
		ruleSet: ruleSet,
		funds:   funds,
		cfg:     cfg,
		logger:  log,
	}
}

// Run replays candles charging the flat cost_bps on every trade side.
func (e *Engine) Run(ctx context.Context, symbol string, candles []contracts.Candle) (*Result, error) {
	bps := e.cfg.CostBps
	return e.walkForward(ctx, symbol, candles, func(int) float64 { return bps })
}

// RunDynamic replays candles with per-bar costs scaled by ATR, the
// batch variant of the fee model.
func (e *Engine) RunDynamic(ctx context.Context, symbol string, candles []contracts.Candle) (*Result, error) {
	atrPct := atrPercent(candles)
	return e.walkForward(ctx, symbol, candles, func(i int) float64 {
		return CostPerNotionalBps(atrPct[i], e.cfg.SpreadBps, e.cfg.SlipBps, e.cfg.SlipATRMult)
	})
}

func (e *Engine) walkForward(ctx context.Context, symbol string, candles []contracts.Candle,
	costAt func(i int) float64) (*Result, error) {
	warmup := e.cfg.Warmup
	if warmup <= 0 {
		warmup = 60
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(candles),
		"warmup": warmup,
		"rules":  len(e.ruleSet),
	}).Info("Starting backtest")
	startTime := time.Now()

	result := &Result{Symbol: symbol, Bars: len(candles), Trades: []Trade{}}
	if len(candles) <= warmup {
		e.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   len(candles),
			"warmup": warmup,
		}).Warn("Not enough bars past warmup, result is empty")
		return result, nil
	}

	cash := 1.0
	shares := 0.0
	pos := 0

	for i := warmup; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := candles[:i+1]
		rctx, err := rules.BuildContext(window, e.funds[symbol], symbol)
		if err != nil {
			return nil, fmt.Errorf("build rule context at bar %d: %w", i, err)
		}
		score, _, _ := rules.Score(e.ruleSet, rctx)
		sig := contracts.SignalFromScore(score)

		px := candles[i].Close
		ts := candles[i].Time
		bps := costAt(i)

		switch {
		case sig == contracts.SignalBuy && pos == 0:
			fee := cash * bps / 1e4
			qty := (cash - fee) / px
			shares += qty
			cash -= qty*px + fee
			pos = 1
			result.Trades = append(result.Trades, Trade{
				Time: ts, Side: "BUY", Price: px, Qty: qty, Bps: bps, Score: score,
			})
		case sig == contracts.SignalSell && pos == 1:
			fee := shares * px * bps / 1e4
			cash += shares*px - fee
			result.Trades = append(result.Trades, Trade{
				Time: ts, Side: "SELL", Price: px, Qty: shares, Bps: bps, Score: score,
			})
			shares = 0
			pos = 0
		}

		result.Equity = append(result.Equity, EquityPoint{Time: ts, Equity: cash + shares*px})
	}

	result.Metrics = EquityMetrics(result.Equity, 0)

	e.logger.WithFields(map[string]interface{}{
		"symbol":       symbol,
		"duration":     time.Since(startTime).Seconds(),
		"trades":       len(result.Trades),
		"cagr":         fmt.Sprintf("%.2f%%", result.Metrics.CAGR*100),
		"sharpe":       fmt.Sprintf("%.2f", result.Metrics.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.Metrics.MDD*100),
	}).Info("Backtest completed")

	return result, nil
}
