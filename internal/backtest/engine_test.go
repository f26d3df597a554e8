package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/config"
	"github.com/wonny/futuquant/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error", // Reduce log noise
		LogFormat: "json",
	})
}

func pricedCandles(prices []float64) []contracts.Candle {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]contracts.Candle, len(prices))
	for i, px := range prices {
		candles[i] = contracts.Candle{
			Symbol: "HK.00700",
			Time:   start.AddDate(0, 0, i),
			Open:   px,
			High:   px,
			Low:    px,
			Close:  px,
			Volume: 1000,
		}
	}
	return candles
}

func risingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return prices
}

func testBacktestConfig() strategyconfig.Backtest {
	return strategyconfig.Backtest{
		Bars:        2000,
		Warmup:      60,
		CostBps:     5.0,
		SpreadBps:   1.0,
		SlipBps:     1.0,
		SlipATRMult: 0.1,
	}
}

func TestRunBuyAndHold(t *testing.T) {
	// A rule that is always true keeps the score positive, so the
	// engine buys on the first bar past warmup and never exits.
	ruleSet := []strategyconfig.Rule{{ID: "T1", Name: "always", Rule: "close > 0", Weight: 1.0}}
	engine := NewEngine(ruleSet, nil, testBacktestConfig(), testLogger())

	candles := pricedCandles(risingPrices(63))
	result, err := engine.Run(context.Background(), "HK.00700", candles)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Bars != 63 {
		t.Errorf("Bars = %d, want 63", result.Bars)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(result.Trades))
	}

	trade := result.Trades[0]
	if trade.Side != "BUY" {
		t.Errorf("Side = %q, want BUY", trade.Side)
	}
	if trade.Price != 160 { // close of bar 60
		t.Errorf("Price = %v, want 160", trade.Price)
	}
	if trade.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", trade.Score)
	}
	if trade.Bps != 5.0 {
		t.Errorf("Bps = %v, want 5.0", trade.Bps)
	}

	// Buy fee comes off the full cash balance before sizing.
	fee := 1.0 * 5.0 / 1e4
	wantQty := (1.0 - fee) / 160
	if math.Abs(trade.Qty-wantQty) > 1e-12 {
		t.Errorf("Qty = %v, want %v", trade.Qty, wantQty)
	}

	if len(result.Equity) != 3 {
		t.Fatalf("equity points = %d, want 3", len(result.Equity))
	}
	// Cash is fully deployed, so equity marks track price times shares.
	if math.Abs(result.Equity[0].Equity-(1.0-fee)) > 1e-12 {
		t.Errorf("equity[0] = %v, want %v", result.Equity[0].Equity, 1.0-fee)
	}
	if math.Abs(result.Equity[1].Equity-wantQty*161) > 1e-12 {
		t.Errorf("equity[1] = %v, want %v", result.Equity[1].Equity, wantQty*161)
	}
	if math.Abs(result.Equity[2].Equity-wantQty*162) > 1e-12 {
		t.Errorf("equity[2] = %v, want %v", result.Equity[2].Equity, wantQty*162)
	}
}

func TestRunRoundTrip(t *testing.T) {
	// Rise long enough to buy above the 50-bar average, then crash
	// through it to force the exit.
	prices := make([]float64, 0, 130)
	for i := 0; i < 80; i++ {
		prices = append(prices, 100+float64(i))
	}
	for i := 0; i < 50; i++ {
		prices = append(prices, 179-3*float64(i+1))
	}

	ruleSet := []strategyconfig.Rule{
		{ID: "T1", Name: "above average", Rule: "close > sma_50", Weight: 1.0},
		{ID: "T2", Name: "below average", Rule: "close < sma_50", Weight: -1.0},
	}
	engine := NewEngine(ruleSet, nil, testBacktestConfig(), testLogger())

	result, err := engine.Run(context.Background(), "HK.00700", pricedCandles(prices))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Trades) < 2 {
		t.Fatalf("trades = %d, want at least a round trip", len(result.Trades))
	}
	for i, trade := range result.Trades {
		want := "BUY"
		if i%2 == 1 {
			want = "SELL"
		}
		if trade.Side != want {
			t.Errorf("trades[%d].Side = %q, want %q", i, trade.Side, want)
		}
	}

	buy, sell := result.Trades[0], result.Trades[1]
	if !sell.Time.After(buy.Time) {
		t.Errorf("sell at %v not after buy at %v", sell.Time, buy.Time)
	}
	if sell.Qty != buy.Qty {
		t.Errorf("sell qty = %v, want full position %v", sell.Qty, buy.Qty)
	}

	// After the sell the account is flat: cash equals sale proceeds
	// net of the fee.
	wantCash := buy.Qty*sell.Price - buy.Qty*sell.Price*5.0/1e4
	for _, p := range result.Equity {
		if p.Time.Equal(sell.Time) {
			if math.Abs(p.Equity-wantCash) > 1e-9 {
				t.Errorf("equity at sell = %v, want %v", p.Equity, wantCash)
			}
		}
	}
}

func TestRunHoldProducesNoTrades(t *testing.T) {
	engine := NewEngine(nil, nil, testBacktestConfig(), testLogger())

	result, err := engine.Run(context.Background(), "HK.00700", pricedCandles(risingPrices(70)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(result.Trades))
	}
	for i, p := range result.Equity {
		if p.Equity != 1.0 {
			t.Errorf("equity[%d] = %v, want untouched 1.0", i, p.Equity)
		}
	}
}

func TestRunNotEnoughBars(t *testing.T) {
	engine := NewEngine(nil, nil, testBacktestConfig(), testLogger())

	result, err := engine.Run(context.Background(), "HK.00700", pricedCandles(risingPrices(60)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Bars != 60 {
		t.Errorf("Bars = %d, want 60", result.Bars)
	}
	if len(result.Trades) != 0 || len(result.Equity) != 0 {
		t.Errorf("trades = %d, equity = %d, want empty result", len(result.Trades), len(result.Equity))
	}
	if result.Metrics != (Metrics{}) {
		t.Errorf("Metrics = %+v, want zeros", result.Metrics)
	}
}

func TestRunCancelled(t *testing.T) {
	engine := NewEngine(nil, nil, testBacktestConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx, "HK.00700", pricedCandles(risingPrices(70))); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestRunDynamicFlatRange(t *testing.T) {
	// Zero-range bars keep the ATR at zero, so the dynamic cost is the
	// fixed half-spread plus slippage on every trade.
	cfg := testBacktestConfig()
	cfg.SpreadBps = 2.0
	cfg.SlipBps = 1.0
	cfg.SlipATRMult = 0.5

	ruleSet := []strategyconfig.Rule{{ID: "T1", Name: "always", Rule: "close > 0", Weight: 1.0}}
	engine := NewEngine(ruleSet, nil, cfg, testLogger())

	result, err := engine.RunDynamic(context.Background(), "HK.00700", pricedCandles(risingPrices(65)))
	if err != nil {
		t.Fatalf("RunDynamic: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(result.Trades))
	}
	if got := result.Trades[0].Bps; got != 2.0 {
		t.Errorf("Bps = %v, want 2.0 (spread/2 + slip)", got)
	}
}

func TestRunFundamentalsReachRules(t *testing.T) {
	// pe comes from the funds map keyed by symbol.
	ruleSet := []strategyconfig.Rule{{ID: "T1", Name: "cheap", Rule: "pe < 30", Weight: 1.0}}
	funds := map[string]map[string]float64{
		"HK.00700": {"pe": 12.0},
	}
	engine := NewEngine(ruleSet, funds, testBacktestConfig(), testLogger())

	result, err := engine.Run(context.Background(), "HK.00700", pricedCandles(risingPrices(62)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want 1 buy driven by fundamentals", len(result.Trades))
	}

	// An unknown symbol has no fundamentals, the rule errors out and
	// the score stays flat.
	other, err := engine.Run(context.Background(), "HK.09988", pricedCandles(risingPrices(62)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(other.Trades) != 0 {
		t.Errorf("trades = %d, want 0 without fundamentals", len(other.Trades))
	}
}
