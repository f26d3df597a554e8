package futu

import (
	"time"

	"github.com/wonny/futuquant/internal/contracts"
)

// OpenD returns ret_code 0 (RET_OK) on success, negative on failure.
const retOK = 0

// timeLayout is the OpenD time_key format.
const timeLayout = "2006-01-02 15:04:05"

// klineResponse is the OpenD kline endpoint envelope
type klineResponse struct {
	RetCode int       `json:"ret_code"`
	RetMsg  string    `json:"ret_msg"`
	Data    klineData `json:"data"`
}

type klineData struct {
	Code      string      `json:"code"`
	KLineList []wireKLine `json:"kline_list"`
}

// wireKLine is one OHLCV bar as OpenD serializes it
type wireKLine struct {
	TimeKey string  `json:"time_key"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Volume  float64 `json:"volume"`
}

// toCandle converts a wire bar to the shared candle type.
// Returns false when time_key cannot be parsed.
func (k wireKLine) toCandle(symbol string) (contracts.Candle, bool) {
	ts, err := time.Parse(timeLayout, k.TimeKey)
	if err != nil {
		return contracts.Candle{}, false
	}
	return contracts.Candle{
		Symbol: symbol,
		Time:   ts,
		Open:   k.Open,
		High:   k.High,
		Low:    k.Low,
		Close:  k.Close,
		Volume: k.Volume,
	}, true
}

// quoteResponse is the OpenD quote endpoint envelope
type quoteResponse struct {
	RetCode int       `json:"ret_code"`
	RetMsg  string    `json:"ret_msg"`
	Data    wireQuote `json:"data"`
}

// wireQuote is the latest traded state as OpenD serializes it
type wireQuote struct {
	Code      string  `json:"code"`
	DataTime  string  `json:"data_time"`
	LastPrice float64 `json:"last_price"`
	Volume    float64 `json:"volume"`
}

// toQuote converts a wire quote to the shared quote type.
// An unparseable data_time falls back to the receive time.
func (q wireQuote) toQuote() *contracts.Quote {
	ts, err := time.Parse(timeLayout, q.DataTime)
	if err != nil {
		ts = time.Now()
	}
	return &contracts.Quote{
		Symbol: q.Code,
		Time:   ts,
		Price:  q.LastPrice,
		Volume: q.Volume,
	}
}
