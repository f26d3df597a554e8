package contracts

import "time"

// Kline types accepted by the FUTU OpenD gateway.
const (
	KTypeDay    = "K_DAY"
	KType1Min   = "K_1M"
	KType5Min   = "K_5M"
	KType15Min  = "K_15M"
	KType30Min  = "K_30M"
	KType60Min  = "K_60M"
	KTypeWeek   = "K_WEEK"
	KTypeMonth  = "K_MON"
)

// Price adjustment modes (autype).
const (
	AuTypeNone     = "None"
	AuTypeForward  = "qfq"
	AuTypeBackward = "hfq"
)

// Candle is one OHLCV bar for a symbol
// ⭐ SSOT: 시세 데이터는 이 타입으로만 전달
type Candle struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the latest traded state of a symbol
type Quote struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close series from candles, oldest first.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series from candles, oldest first.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from candles, oldest first.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume series from candles, oldest first.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
