package marketdata

import (
	"context"

	talib "github.com/markcheno/go-talib"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/features"
)

// Feature columns every source can materialize.
var frameColumns = []string{"price", "volume", "macd", "bbands"}

// Source supplies market data to the pipeline
// ⭐ SSOT: 시세 공급은 이 인터페이스로만
type Source interface {
	// Klines returns up to num bars for a symbol, oldest first.
	Klines(ctx context.Context, symbol, ktype string, num int) ([]contracts.Candle, error)

	// LatestFrame returns the most recent feature frame.
	LatestFrame(ctx context.Context) (*features.Frame, error)
}

// latestFrame builds a one-row feature frame from a candle history.
// Indicator columns default to neutral values until enough bars exist.
func latestFrame(candles []contracts.Candle) (*features.Frame, error) {
	frame := features.NewFrame(frameColumns)
	if len(candles) == 0 {
		return frame, nil
	}

	last := candles[len(candles)-1]
	closes := contracts.Closes(candles)
	n := len(closes)

	macd := 0.0
	if n >= 35 {
		line, _, _ := talib.Macd(closes, 12, 26, 9)
		macd = line[n-1]
	}

	// %B: where the close sits inside the Bollinger band
	bbands := 0.5
	if n >= 20 {
		upper, _, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
		if width := upper[n-1] - lower[n-1]; width > 0 {
			bbands = (last.Close - lower[n-1]) / width
		}
	}

	if err := frame.AppendRow(last.Close, last.Volume, macd, bbands); err != nil {
		return nil, err
	}
	return frame, nil
}
