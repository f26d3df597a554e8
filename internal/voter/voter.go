package voter

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/external/fundamentals"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/rules"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// FundamentalsSource supplies valuation fields for rule contexts.
type FundamentalsSource interface {
	Fetch(ctx context.Context, symbol string) (*fundamentals.Snapshot, error)
}

// PnLSource supplies unrealized PnL per symbol. The live trading
// account is not wired in, so deployments without one leave this nil
// and votes carry zero PnL.
type PnLSource interface {
	UnrealizedPnL(ctx context.Context, symbol string) (float64, error)
}

// Engine scores one symbol against the rule set
// ⭐ SSOT: 투표 생성은 엔진에서만
type Engine struct {
	source       marketdata.Source
	ruleSet      []strategyconfig.Rule
	fundamentals FundamentalsSource
	pnl          PnLSource
	cfg          *strategyconfig.Config
	logger       *logger.Logger
}

// NewEngine creates a voting engine. fundamentals and pnl are optional.
func NewEngine(source marketdata.Source, ruleSet []strategyconfig.Rule,
	fundamentals FundamentalsSource, pnl PnLSource,
	cfg *strategyconfig.Config, log *logger.Logger) *Engine {
	return &Engine{
		source:       source,
		ruleSet:      ruleSet,
		fundamentals: fundamentals,
		pnl:          pnl,
		cfg:          cfg,
		logger:       log,
	}
}

// EvaluateSymbol builds a rule context from the symbol's history and
// reduces the rule outcomes to a single vote.
func (e *Engine) EvaluateSymbol(ctx context.Context, symbol string) (*contracts.Vote, error) {
	candles, err := e.source.Klines(ctx, symbol, e.cfg.Futu.KType, e.cfg.Futu.KNum)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	var fields map[string]float64
	if e.fundamentals != nil {
		snap, err := e.fundamentals.Fetch(ctx, symbol)
		if err != nil {
			// Votes still make sense without valuation fields, the
			// missing count carries the signal.
			e.logger.WithError(err).WithField("symbol", symbol).Warn("Fundamentals unavailable")
		} else {
			fields = snap.Fields
		}
	}

	rctx, err := rules.BuildContext(candles, fields, symbol)
	if err != nil {
		return nil, fmt.Errorf("build rule context: %w", err)
	}

	score, evaluated, passed := rules.Score(e.ruleSet, rctx)

	pnl := 0.0
	if e.pnl != nil {
		v, err := e.pnl.UnrealizedPnL(ctx, symbol)
		if err != nil {
			e.logger.WithError(err).WithField("symbol", symbol).Warn("Unrealized PnL unavailable")
		} else {
			pnl = v
		}
	}

	return &contracts.Vote{
		Symbol:              symbol,
		Score:               score,
		Signal:              contracts.SignalFromScore(score),
		RulesEvaluated:      evaluated,
		RulesPassed:         passed,
		FundamentalsMissing: rctx.MissingFundamentals(),
		UnrealizedPnL:       pnl,
		At:                  time.Now(),
	}, nil
}
