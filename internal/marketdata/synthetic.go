package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/features"
)

// Synthetic generates deterministic market data so every stage runs
// without a gateway. The same symbol always yields the same series.
type Synthetic struct {
	symbol string
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic creates a synthetic source for a symbol
func NewSynthetic(symbol string) *Synthetic {
	return &Synthetic{symbol: symbol}
}

// LatestFrame returns a fixed single-row frame.
func (s *Synthetic) LatestFrame(ctx context.Context) (*features.Frame, error) {
	frame := features.NewFrame(frameColumns)
	// Whole-number volume keeps the integer coercion path exercised.
	if err := frame.AppendRow(1.0, 100, 0.1, 0.2); err != nil {
		return nil, err
	}
	return frame, nil
}

// Klines generates num daily bars via a seeded random walk, oldest first.
func (s *Synthetic) Klines(ctx context.Context, symbol, ktype string, num int) ([]contracts.Candle, error) {
	if symbol == "" {
		symbol = s.symbol
	}
	rng := rand.New(rand.NewSource(seedFor(symbol)))

	candles := make([]contracts.Candle, 0, num)
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0

	for i := 0; i < num; i++ {
		ret := 0.0003 + rng.NormFloat64()*0.02
		open := price
		close := open * (1 + ret)
		high := math.Max(open, close) * (1 + rng.Float64()*0.01)
		low := math.Min(open, close) * (1 - rng.Float64()*0.01)
		volume := math.Floor(1e6 * (0.5 + rng.Float64()))

		candles = append(candles, contracts.Candle{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}

	return candles, nil
}

// seedFor derives a stable seed from the symbol name.
func seedFor(symbol string) int64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int64(h.Sum32())
}
