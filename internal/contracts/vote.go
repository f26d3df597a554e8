package contracts

import "time"

// Signal is the direction a voter cycle decided on.
type Signal int

const (
	SignalSell Signal = -1
	SignalHold Signal = 0
	SignalBuy  Signal = 1
)

// String returns the wire spelling of the signal.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// SignalFromScore maps a weighted rule score to a signal:
// positive scores buy, negative scores sell, zero holds.
func SignalFromScore(score float64) Signal {
	switch {
	case score > 0:
		return SignalBuy
	case score < 0:
		return SignalSell
	default:
		return SignalHold
	}
}

// Vote is the outcome of one voter evaluation for a symbol
// ⭐ SSOT: voter → metrics/alerts/storage 전달 타입
type Vote struct {
	Symbol              string    `json:"symbol"`
	Score               float64   `json:"score"`
	Signal              Signal    `json:"signal"`
	RulesEvaluated      int       `json:"rules_evaluated"`
	RulesPassed         int       `json:"rules_passed"`
	FundamentalsMissing int       `json:"fundamentals_missing"`
	UnrealizedPnL       float64   `json:"unrealized_pnl"`
	At                  time.Time `json:"at"`
}

// SignalValue returns the signal as the float the gauges export.
func (v *Vote) SignalValue() float64 {
	return float64(v.Signal)
}
