package rules

import (
	"errors"
	"sort"

	talib "github.com/markcheno/go-talib"

	"github.com/wonny/futuquant/internal/contracts"
)

// ErrNoCandles is returned when a context is requested for an empty history.
var ErrNoCandles = errors.New("no candles to build rule context")

// expectedFundamentals are the fields the voter tracks as missing when
// a symbol's fundamentals do not provide them.
var expectedFundamentals = []string{"pe", "pb", "roe"}

// Context holds the identifier bindings one rule evaluation sees:
// scalar values for comparisons plus series for cross_up.
type Context struct {
	Symbol string

	scalars             map[string]float64
	series              map[string][]float64
	missingFundamentals int
}

// NewContext creates a context from explicit bindings.
func NewContext(scalars map[string]float64, series map[string][]float64) *Context {
	if scalars == nil {
		scalars = map[string]float64{}
	}
	if series == nil {
		series = map[string][]float64{}
	}
	return &Context{scalars: scalars, series: series}
}

// Value returns the scalar binding for name.
func (c *Context) Value(name string) (float64, bool) {
	v, ok := c.scalars[name]
	return v, ok
}

// Series returns the series binding for name, oldest first.
func (c *Context) Series(name string) ([]float64, bool) {
	s, ok := c.series[name]
	return s, ok
}

// Names returns the scalar binding names, sorted.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.scalars))
	for k := range c.scalars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MissingFundamentals returns how many expected fundamental fields the
// context lacks.
func (c *Context) MissingFundamentals() int {
	return c.missingFundamentals
}

// BuildContext computes indicator bindings from candle history.
//
// Indicators whose warmup exceeds the history are left unbound so the
// rules that reference them fail evaluation instead of comparing
// against zeros.
func BuildContext(candles []contracts.Candle, fundamentals map[string]float64, symbol string) (*Context, error) {
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}

	closes := contracts.Closes(candles)
	highs := contracts.Highs(candles)
	lows := contracts.Lows(candles)
	volumes := contracts.Volumes(candles)
	n := len(closes)
	last := n - 1

	ctx := &Context{
		Symbol:  symbol,
		scalars: map[string]float64{},
		series:  map[string][]float64{},
	}

	ctx.bindSeries("close", closes, 1)
	ctx.bindSeries("volume", volumes, 1)
	ctx.scalars["close"] = closes[last]
	ctx.scalars["open"] = candles[last].Open
	ctx.scalars["high"] = highs[last]
	ctx.scalars["low"] = lows[last]
	ctx.scalars["volume"] = volumes[last]

	if n >= 20 {
		ctx.bindIndicator("sma_20", talib.Sma(closes, 20))
		ctx.bindIndicator("ema_20", talib.Ema(closes, 20))
	}
	if n >= 50 {
		ctx.bindIndicator("sma_50", talib.Sma(closes, 50))
		ctx.bindIndicator("ema_50", talib.Ema(closes, 50))
	}
	if n >= 15 {
		ctx.bindIndicator("rsi_14", talib.Rsi(closes, 14))
		ctx.bindIndicator("atr_14", talib.Atr(highs, lows, closes, 14))
	}
	if n >= 35 {
		macd, signal, hist := talib.Macd(closes, 12, 26, 9)
		ctx.bindIndicator("macd", macd)
		ctx.bindIndicator("macd_signal", signal)
		ctx.bindIndicator("macd_hist", hist)
	}
	if n >= 20 {
		upper, mid, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
		ctx.bindIndicator("bb_upper", upper)
		ctx.bindIndicator("bb_mid", mid)
		ctx.bindIndicator("bb_lower", lower)
	}

	for k, v := range fundamentals {
		ctx.scalars[k] = v
	}
	for _, field := range expectedFundamentals {
		if _, ok := fundamentals[field]; !ok {
			ctx.missingFundamentals++
		}
	}

	return ctx, nil
}

func (c *Context) bindIndicator(name string, series []float64) {
	c.bindSeries(name, series, 1)
	c.scalars[name] = series[len(series)-1]
}

func (c *Context) bindSeries(name string, series []float64, minLen int) {
	if len(series) >= minLen {
		c.series[name] = series
	}
}
