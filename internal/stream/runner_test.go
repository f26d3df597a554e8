package stream

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/model"
	"github.com/wonny/futuquant/pkg/config"
	"github.com/wonny/futuquant/pkg/logger"
)

var featureCols = []string{"price", "volume", "macd", "bbands"}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:       "development",
		LogLevel:  "error", // Reduce log noise
		LogFormat: "json",
	})
}

type stubSource struct {
	frame *features.Frame
	err   error
}

func (s *stubSource) LatestFrame(ctx context.Context) (*features.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

type countingPredictor struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPredictor) Predict(features []float32) (float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return 0.5, nil
}

func (p *countingPredictor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type failingPredictor struct{}

func (failingPredictor) Predict([]float32) (float64, error) {
	return 0, errors.New("boom")
}

func cleanFrame(t *testing.T) *features.Frame {
	t.Helper()
	frame := features.NewFrame(featureCols)
	// 1 + 2 - 1.5 - 1.5 sums to zero, so sigmoid gives exactly 0.5.
	if err := frame.AppendRow(1.0, 2.0, -1.5, -1.5); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	return frame
}

func TestRunOnce(t *testing.T) {
	m := metrics.New()
	bridge := features.NewBridge(featureCols, m, testLogger())
	source := &stubSource{frame: cleanFrame(t)}
	runner := NewRunner(source, bridge, model.NewLogistic(), nil, time.Second, testLogger())

	prob, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if prob != 0.5 {
		t.Errorf("prob = %v, want 0.5", prob)
	}
	if got := testutil.ToFloat64(m.FeaturesNaNRate); got != 0 {
		t.Errorf("features_nan_rate = %v, want 0", got)
	}
}

func TestRunOnceDirtyFrame(t *testing.T) {
	frame := features.NewFrame([]string{"price", "volume", "macd"})
	if err := frame.AppendRow(1.0, math.NaN(), 0.5); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	m := metrics.New()
	bridge := features.NewBridge(featureCols, m, testLogger())
	source := &stubSource{frame: frame}
	runner := NewRunner(source, bridge, model.NewLogistic(), nil, time.Second, testLogger())

	prob, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// NaN volume and the missing bbands column both collapse to zero,
	// leaving sigmoid(1.0 + 0.5).
	want := 1 / (1 + math.Exp(-1.5))
	if math.Abs(prob-want) > 1e-6 {
		t.Errorf("prob = %v, want %v", prob, want)
	}
	// Only the NaN replacement counts against the rate, 1 of 4 cells.
	if got := testutil.ToFloat64(m.FeaturesNaNRate); got != 0.25 {
		t.Errorf("features_nan_rate = %v, want 0.25", got)
	}
}

func TestRunOnceSourceError(t *testing.T) {
	bridge := features.NewBridge(featureCols, nil, testLogger())
	source := &stubSource{err: errors.New("gateway down")}
	runner := NewRunner(source, bridge, model.NewLogistic(), nil, time.Second, testLogger())

	_, err := runner.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "build feature row") {
		t.Errorf("error = %v, want build feature row wrap", err)
	}
}

func TestRunOncePredictError(t *testing.T) {
	bridge := features.NewBridge(featureCols, nil, testLogger())
	source := &stubSource{frame: cleanFrame(t)}
	runner := NewRunner(source, bridge, failingPredictor{}, nil, time.Second, testLogger())

	_, err := runner.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "predict") {
		t.Errorf("error = %v, want predict wrap", err)
	}
}

func TestRunLoop(t *testing.T) {
	bridge := features.NewBridge(featureCols, nil, testLogger())
	source := &stubSource{frame: cleanFrame(t)}
	predictor := &countingPredictor{}
	runner := NewRunner(source, bridge, predictor, nil, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}
	if n := predictor.count(); n < 2 {
		t.Errorf("predictor called %d times, want at least 2", n)
	}
}

func TestRunWithMetricsServer(t *testing.T) {
	m := metrics.New()
	bridge := features.NewBridge(featureCols, m, testLogger())
	source := &stubSource{frame: cleanFrame(t)}
	server := metrics.NewServer(m, "0", testLogger())
	runner := NewRunner(source, bridge, model.NewLogistic(), server, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	if err := runner.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}
}
