package voter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wonny/futuquant/internal/alerts"
	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/external/fundamentals"
	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/config"
	"github.com/wonny/futuquant/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
	})
}

func testConfig() *strategyconfig.Config {
	return strategyconfig.Default()
}

type stubFundamentals struct {
	snap *fundamentals.Snapshot
	err  error
}

func (s stubFundamentals) Fetch(ctx context.Context, symbol string) (*fundamentals.Snapshot, error) {
	return s.snap, s.err
}

type stubPnL struct {
	value float64
	err   error
}

func (s stubPnL) UnrealizedPnL(ctx context.Context, symbol string) (float64, error) {
	return s.value, s.err
}

// failingSource errors for symbols listed in bad.
type failingSource struct {
	inner marketdata.Source
	bad   map[string]bool
}

func (f failingSource) Klines(ctx context.Context, symbol, ktype string, num int) ([]contracts.Candle, error) {
	if f.bad[symbol] {
		return nil, errors.New("gateway down")
	}
	return f.inner.Klines(ctx, symbol, ktype, num)
}

func (f failingSource) LatestFrame(ctx context.Context) (*features.Frame, error) {
	return f.inner.LatestFrame(ctx)
}

func TestEvaluateSymbol(t *testing.T) {
	cfg := testConfig()
	funds := stubFundamentals{snap: &fundamentals.Snapshot{
		Symbol: "HK.00700",
		Fields: map[string]float64{"pe": 12.0, "pb": 1.5, "roe": 0.2},
	}}

	engine := NewEngine(marketdata.NewSynthetic("HK.00700"), strategyconfig.DefaultRules(),
		funds, nil, cfg, testLogger())

	vote, err := engine.EvaluateSymbol(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("EvaluateSymbol() error = %v", err)
	}

	if vote.Symbol != "HK.00700" {
		t.Errorf("Symbol = %s", vote.Symbol)
	}
	if vote.RulesEvaluated != len(strategyconfig.DefaultRules()) {
		t.Errorf("RulesEvaluated = %d, want %d", vote.RulesEvaluated, len(strategyconfig.DefaultRules()))
	}
	if vote.RulesPassed < 0 || vote.RulesPassed > vote.RulesEvaluated {
		t.Errorf("RulesPassed = %d out of range", vote.RulesPassed)
	}
	if vote.Signal != contracts.SignalFromScore(vote.Score) {
		t.Errorf("Signal %v inconsistent with score %v", vote.Signal, vote.Score)
	}
	if vote.FundamentalsMissing != 0 {
		t.Errorf("FundamentalsMissing = %d, want 0", vote.FundamentalsMissing)
	}
	if vote.UnrealizedPnL != 0 {
		t.Errorf("UnrealizedPnL = %v, want 0 without a PnL source", vote.UnrealizedPnL)
	}
	if vote.At.IsZero() {
		t.Error("At not set")
	}
}

func TestEvaluateSymbolWithoutFundamentals(t *testing.T) {
	engine := NewEngine(marketdata.NewSynthetic("HK.00700"), strategyconfig.DefaultRules(),
		nil, nil, testConfig(), testLogger())

	vote, err := engine.EvaluateSymbol(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("EvaluateSymbol() error = %v", err)
	}
	if vote.FundamentalsMissing != 3 {
		t.Errorf("FundamentalsMissing = %d, want 3", vote.FundamentalsMissing)
	}
}

func TestEvaluateSymbolFundamentalsError(t *testing.T) {
	funds := stubFundamentals{err: errors.New("scrape failed")}
	engine := NewEngine(marketdata.NewSynthetic("HK.00700"), strategyconfig.DefaultRules(),
		funds, nil, testConfig(), testLogger())

	// A broken scraper degrades the vote, it must not fail it.
	vote, err := engine.EvaluateSymbol(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("EvaluateSymbol() error = %v", err)
	}
	if vote.FundamentalsMissing != 3 {
		t.Errorf("FundamentalsMissing = %d, want 3", vote.FundamentalsMissing)
	}
}

func TestEvaluateSymbolWithPnL(t *testing.T) {
	engine := NewEngine(marketdata.NewSynthetic("HK.00700"), strategyconfig.DefaultRules(),
		nil, stubPnL{value: -512.25}, testConfig(), testLogger())

	vote, err := engine.EvaluateSymbol(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("EvaluateSymbol() error = %v", err)
	}
	if vote.UnrealizedPnL != -512.25 {
		t.Errorf("UnrealizedPnL = %v, want -512.25", vote.UnrealizedPnL)
	}
}

func TestEvaluateSymbolSourceError(t *testing.T) {
	src := failingSource{inner: marketdata.NewSynthetic("HK.00700"), bad: map[string]bool{"HK.00700": true}}
	engine := NewEngine(src, strategyconfig.DefaultRules(), nil, nil, testConfig(), testLogger())

	_, err := engine.EvaluateSymbol(context.Background(), "HK.00700")
	if err == nil {
		t.Fatal("EvaluateSymbol() expected error")
	}
	if !strings.Contains(err.Error(), "fetch klines") {
		t.Errorf("error %q missing fetch klines context", err)
	}
}

// stubChannel records alert deliveries for runner tests.
type stubChannel struct {
	subjects []string
}

func (s *stubChannel) Name() string { return "stub" }

func (s *stubChannel) Notify(ctx context.Context, subject, body string) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

func TestRunnerRunOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Alerts.Enabled = true
	cfg.Alerts.MinVoterScore = 1e9 // every score trips the alert

	engine := NewEngine(marketdata.NewSynthetic("HK.00700"), strategyconfig.DefaultRules(),
		nil, nil, cfg, testLogger())

	m := metrics.New()
	am := alerts.NewManager(cfg.Alerts, testLogger())
	channel := &stubChannel{}
	am.AddNotifier(channel)

	runner := NewRunner(engine, cfg, m, am, nil, testLogger())
	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	evaluated := testutil.ToFloat64(m.VoterRulesEvaluated.WithLabelValues("HK.00700"))
	if evaluated != float64(len(strategyconfig.DefaultRules())) {
		t.Errorf("voter_rules_evaluated = %v", evaluated)
	}

	signal := testutil.ToFloat64(m.VoterSignal.WithLabelValues("HK.00700"))
	if signal != -1 && signal != 0 && signal != 1 {
		t.Errorf("voter_signal = %v, want -1/0/1", signal)
	}

	if len(channel.subjects) != 1 || channel.subjects[0] != "[Alert] ScoreTooLow" {
		t.Errorf("alert deliveries = %v, want one ScoreTooLow", channel.subjects)
	}
}

func TestRunnerRunOncePartialFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = []string{"HK.00700", "HK.09988"}

	src := failingSource{inner: marketdata.NewSynthetic(""), bad: map[string]bool{"HK.09988": true}}
	engine := NewEngine(src, strategyconfig.DefaultRules(), nil, nil, cfg, testLogger())

	m := metrics.New()
	runner := NewRunner(engine, cfg, m, alerts.NewManager(cfg.Alerts, testLogger()), nil, testLogger())

	if err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v, want nil when one symbol survives", err)
	}

	evaluated := testutil.ToFloat64(m.VoterRulesEvaluated.WithLabelValues("HK.00700"))
	if evaluated == 0 {
		t.Error("surviving symbol produced no metrics")
	}
}

func TestRunnerRunOnceAllFail(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = []string{"HK.00700"}

	src := failingSource{inner: marketdata.NewSynthetic(""), bad: map[string]bool{"HK.00700": true}}
	engine := NewEngine(src, strategyconfig.DefaultRules(), nil, nil, cfg, testLogger())
	runner := NewRunner(engine, cfg, nil, alerts.NewManager(cfg.Alerts, testLogger()), nil, testLogger())

	if err := runner.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() expected error when every symbol fails")
	}
}
