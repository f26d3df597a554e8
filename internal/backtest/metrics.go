package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// EquityPoint is one mark of portfolio value.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Metrics summarises an equity curve.
type Metrics struct {
	CAGR   float64 `json:"cagr"`
	Sharpe float64 `json:"sharpe"`
	MDD    float64 `json:"mdd"`
	Vol    float64 `json:"vol"`
}

// EquityMetrics computes annualised growth, Sharpe, volatility and max
// drawdown from an equity curve. Curves shorter than two points yield
// zeros.
func EquityMetrics(curve []EquityPoint, rf float64) Metrics {
	if len(curve) < 2 {
		return Metrics{}
	}

	rets := simpleReturns(curve)

	// Calendar span drives annualisation; bar count stands in when the
	// timestamps are degenerate.
	days := curve[len(curve)-1].Time.Sub(curve[0].Time).Hours() / 24
	years := days / 365.25
	if days <= 0 {
		years = float64(len(curve)) / tradingDaysPerYear
	}
	years = math.Max(1e-9, years)

	start := math.Max(1e-9, curve[0].Equity)
	cagr := math.Pow(curve[len(curve)-1].Equity/start, 1/years) - 1

	mean, std := stat.MeanStdDev(rets, nil)
	vol := std * math.Sqrt(tradingDaysPerYear)
	sharpe := 0.0
	if vol != 0 {
		sharpe = (mean*tradingDaysPerYear - rf) / vol
	}

	mdd := 0.0
	for _, p := range Drawdown(curve) {
		if p.Equity < mdd {
			mdd = p.Equity
		}
	}

	return Metrics{CAGR: cagr, Sharpe: sharpe, MDD: mdd, Vol: vol}
}

// Drawdown maps an equity curve to its drawdown series, equity over
// running peak minus one.
func Drawdown(curve []EquityPoint) []EquityPoint {
	out := make([]EquityPoint, len(curve))
	peak := math.Inf(-1)
	for i, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := 0.0
		if peak != 0 {
			dd = p.Equity/peak - 1
		}
		out[i] = EquityPoint{Time: p.Time, Equity: dd}
	}
	return out
}

// simpleReturns is the bar-to-bar percentage change with a leading
// zero, so the slice lines up with the curve.
func simpleReturns(curve []EquityPoint) []float64 {
	rets := make([]float64, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev != 0 {
			rets[i] = curve[i].Equity/prev - 1
		}
	}
	return rets
}

// BootstrapInterval is a resampled confidence interval for a statistic.
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap resamples values with replacement sampleSize times,
// applies measure to every resample and returns the confidence
// interval of the resulting distribution.
func Bootstrap(values []float64, measure func([]float64) float64, sampleSize int,
	confidence float64) BootstrapInterval {
	if len(values) == 0 || sampleSize <= 0 {
		return BootstrapInterval{}
	}

	data := make([]float64, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		samples := make([]float64, len(values))
		for j := range samples {
			samples[j] = lo.Sample(values)
		}
		data = append(data, measure(samples))
	}

	sort.Float64s(data)
	mean, stdDev := stat.MeanStdDev(data, nil)
	tail := 1 - confidence

	return BootstrapInterval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}

// Mean is the default measure for Bootstrap.
func Mean(values []float64) float64 {
	return stat.Mean(values, nil)
}
