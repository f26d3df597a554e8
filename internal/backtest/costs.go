package backtest

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/futuquant/internal/contracts"
)

const atrPeriod = 14

// CostPerNotionalBps returns the one-side trade cost in basis points:
// half the quoted spread plus fixed and ATR-scaled slippage. atrPct is
// ATR/price as a proportion, e.g. 0.01 for 1%.
func CostPerNotionalBps(atrPct, spreadBps, slipBps, slipATRMult float64) float64 {
	return spreadBps/2.0 + slipBps + slipATRMult*atrPct*1e4
}

// atrPercent returns ATR(14)/close per bar. Bars before the rolling
// window fills stay zero so early trades fall back to the fixed cost
// components.
func atrPercent(candles []contracts.Candle) []float64 {
	n := len(candles)
	out := make([]float64, n)
	if n < atrPeriod {
		return out
	}

	tr := make([]float64, n)
	tr[0] = math.Abs(candles[0].High - candles[0].Low)
	for i := 1; i < n; i++ {
		hl := math.Abs(candles[i].High - candles[i].Low)
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := talib.Sma(tr, atrPeriod)
	for i := atrPeriod - 1; i < n; i++ {
		if candles[i].Close != 0 {
			out[i] = atr[i] / candles[i].Close
		}
	}
	return out
}
