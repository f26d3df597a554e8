package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/futuquant/internal/contracts"
)

// Metrics holds every gauge the runners export
// ⭐ SSOT: 메트릭 이름/라벨/도움말은 이 파일에서만 정의
type Metrics struct {
	registry *prometheus.Registry

	// FeaturesNaNRate is the fraction of feature values replaced
	// during the most recent bridge build.
	FeaturesNaNRate prometheus.Gauge

	VoterSignal         *prometheus.GaugeVec
	VoterScore          *prometheus.GaugeVec
	VoterRulesEvaluated *prometheus.GaugeVec
	VoterRulesPassed    *prometheus.GaugeVec
	FundamentalsMissing *prometheus.GaugeVec
	VoterUnrealizedPnL  *prometheus.GaugeVec
}

// New creates a metric set backed by its own registry so tests and
// multiple runners never collide on the global default.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FeaturesNaNRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "features_nan_rate",
			Help: "Rate of NaN/inf features in latest row",
		}),
		VoterSignal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voter_signal",
			Help: "Voter signal: -1 sell, 0 hold, 1 buy",
		}, []string{"symbol"}),
		VoterScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voter_score",
			Help: "Voter weighted score",
		}, []string{"symbol"}),
		VoterRulesEvaluated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voter_rules_evaluated",
			Help: "Rules evaluated count",
		}, []string{"symbol"}),
		VoterRulesPassed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voter_rules_passed",
			Help: "Rules passed count",
		}, []string{"symbol"}),
		FundamentalsMissing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fundamentals_missing_fields",
			Help: "Missing fundamentals fields count",
		}, []string{"symbol"}),
		VoterUnrealizedPnL: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voter_unrealized_pnl",
			Help: "Unrealized PnL",
		}, []string{"symbol"}),
	}

	m.registry.MustRegister(
		m.FeaturesNaNRate,
		m.VoterSignal,
		m.VoterScore,
		m.VoterRulesEvaluated,
		m.VoterRulesPassed,
		m.FundamentalsMissing,
		m.VoterUnrealizedPnL,
	)

	return m
}

// Registry returns the backing registry for exposition
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetNaNRate records the replacement ratio for the batch just processed
func (m *Metrics) SetNaNRate(ratio float64) {
	m.FeaturesNaNRate.Set(ratio)
}

// ObserveVote pushes one voter outcome into the per-symbol gauges
func (m *Metrics) ObserveVote(v *contracts.Vote) {
	labels := prometheus.Labels{"symbol": v.Symbol}
	m.VoterSignal.With(labels).Set(v.SignalValue())
	m.VoterScore.With(labels).Set(v.Score)
	m.VoterRulesEvaluated.With(labels).Set(float64(v.RulesEvaluated))
	m.VoterRulesPassed.With(labels).Set(float64(v.RulesPassed))
	m.FundamentalsMissing.With(labels).Set(float64(v.FundamentalsMissing))
	m.VoterUnrealizedPnL.With(labels).Set(v.UnrealizedPnL)
}
