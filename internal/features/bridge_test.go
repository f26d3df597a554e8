package features

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wonny/futuquant/internal/metrics"
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

func TestBuildRowHandlesMissingAndNaN(t *testing.T) {
	// bbands column absent, volume NaN, macd a numeric string.
	frame := NewFrame([]string{"price", "volume", "macd"})
	if err := frame.AppendRow(1.0, math.NaN(), "3"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	m := metrics.New()
	bridge := NewBridge(featureCols, m, testLogger())

	row, report, err := bridge.BuildRow(frame)
	if err != nil {
		t.Fatalf("BuildRow: %v", err)
	}

	if row.Dim() != len(featureCols) {
		t.Fatalf("Dim() = %d, want %d", row.Dim(), len(featureCols))
	}
	for i, col := range featureCols {
		if row.Columns[i] != col {
			t.Errorf("Columns[%d] = %q, want %q", i, row.Columns[i], col)
		}
	}

	if row.Values[0] != 1.0 {
		t.Errorf("price = %v, want 1.0", row.Values[0])
	}
	if row.Values[1] != 0 {
		t.Errorf("volume = %v, want 0 (NaN replaced)", row.Values[1])
	}
	if row.Values[2] != 3.0 {
		t.Errorf("macd = %v, want 3.0 (numeric string coerced)", row.Values[2])
	}
	if row.Values[3] != 0 {
		t.Errorf("bbands = %v, want 0 (missing column filled)", row.Values[3])
	}

	if len(report.MissingCols) != 1 || report.MissingCols[0] != "bbands" {
		t.Errorf("MissingCols = %v, want [bbands]", report.MissingCols)
	}

	// Only the NaN counts as replaced. Filled missing columns and
	// coerced numeric strings do not.
	if report.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", report.Replaced)
	}
	if report.Total != 4 {
		t.Errorf("Total = %d, want 4", report.Total)
	}
	if report.NaNRatio != 0.25 {
		t.Errorf("NaNRatio = %v, want 0.25", report.NaNRatio)
	}

	if got := testutil.ToFloat64(m.FeaturesNaNRate); got != 0.25 {
		t.Errorf("features_nan_rate = %v, want 0.25", got)
	}
}

func TestBuildRowCleanInput(t *testing.T) {
	frame := NewFrame(featureCols)
	if err := frame.AppendRow(1.0, 100, 0.1, 0.2); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	m := metrics.New()
	bridge := NewBridge(featureCols, m, testLogger())

	row, report, err := bridge.BuildRow(frame)
	if err != nil {
		t.Fatalf("BuildRow: %v", err)
	}

	want := []float32{1.0, 100, 0.1, 0.2}
	for i, v := range want {
		if row.Values[i] != v {
			t.Errorf("Values[%d] = %v, want %v", i, row.Values[i], v)
		}
	}

	if report.Replaced != 0 {
		t.Errorf("Replaced = %d, want 0", report.Replaced)
	}
	if got := testutil.ToFloat64(m.FeaturesNaNRate); got != 0 {
		t.Errorf("features_nan_rate = %v, want 0", got)
	}
}

func TestBuildRowUsesLastRow(t *testing.T) {
	frame := NewFrame(featureCols)
	frame.AppendRow(1.0, 100.0, 0.1, 0.2)
	frame.AppendRow(2.0, 200.0, 0.3, 0.4)

	bridge := NewBridge(featureCols, nil, testLogger())
	row, _, err := bridge.BuildRow(frame)
	if err != nil {
		t.Fatalf("BuildRow: %v", err)
	}

	if row.Values[0] != 2.0 {
		t.Errorf("price = %v, want 2.0 (latest row)", row.Values[0])
	}
}

func TestBuildRowReplacementRatio(t *testing.T) {
	tests := []struct {
		name      string
		cells     []interface{}
		wantRatio float64
	}{
		{"all invalid", []interface{}{math.NaN(), math.Inf(1), nil, "abc"}, 1.0},
		{"half invalid", []interface{}{1.0, math.Inf(-1), "x", 4.0}, 0.5},
		{"none invalid", []interface{}{1.0, 2.0, "3", true}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := NewFrame(featureCols)
			if err := frame.AppendRow(tt.cells...); err != nil {
				t.Fatalf("AppendRow: %v", err)
			}

			m := metrics.New()
			bridge := NewBridge(featureCols, m, testLogger())

			row, report, err := bridge.BuildRow(frame)
			if err != nil {
				t.Fatalf("BuildRow: %v", err)
			}

			for i, v := range row.Values {
				f := float64(v)
				if math.IsNaN(f) || math.IsInf(f, 0) {
					t.Errorf("Values[%d] = %v, output must be finite", i, v)
				}
			}

			if report.NaNRatio != tt.wantRatio {
				t.Errorf("NaNRatio = %v, want %v", report.NaNRatio, tt.wantRatio)
			}
			if got := testutil.ToFloat64(m.FeaturesNaNRate); got != tt.wantRatio {
				t.Errorf("features_nan_rate = %v, want %v", got, tt.wantRatio)
			}
		})
	}
}

func TestBuildRowEmptyFrame(t *testing.T) {
	bridge := NewBridge(featureCols, nil, testLogger())

	_, _, err := bridge.BuildRow(NewFrame(featureCols))
	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("err = %v, want ErrEmptyFrame", err)
	}

	_, _, err = bridge.BuildRow(nil)
	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("err = %v, want ErrEmptyFrame for nil frame", err)
	}
}

func TestBuildRowNoColumns(t *testing.T) {
	bridge := NewBridge(nil, nil, testLogger())

	frame := NewFrame([]string{"price"})
	frame.AppendRow(1.0)

	_, _, err := bridge.BuildRow(frame)
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
}

func TestBuildLatestRow(t *testing.T) {
	source := frameSource{frame: func() *Frame {
		f := NewFrame(featureCols)
		f.AppendRow(1.0, 100, 0.1, 0.2)
		return f
	}()}

	bridge := NewBridge(featureCols, metrics.New(), testLogger())
	row, report, err := bridge.BuildLatestRow(context.Background(), source)
	if err != nil {
		t.Fatalf("BuildLatestRow: %v", err)
	}
	if row.Dim() != 4 {
		t.Errorf("Dim() = %d, want 4", row.Dim())
	}
	if report.NaNRatio != 0 {
		t.Errorf("NaNRatio = %v, want 0", report.NaNRatio)
	}
}

func TestBuildLatestRowSourceError(t *testing.T) {
	bridge := NewBridge(featureCols, nil, testLogger())

	_, _, err := bridge.BuildLatestRow(context.Background(), frameSource{err: errors.New("gateway down")})
	if err == nil {
		t.Fatal("Expected error when source fails")
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name         string
		cell         interface{}
		want         float32
		wantReplaced bool
	}{
		{"float64", 1.5, 1.5, false},
		{"float32", float32(2.5), 2.5, false},
		{"int", 100, 100, false},
		{"int64", int64(7), 7, false},
		{"numeric string", "3", 3, false},
		{"numeric string with spaces", " 2.5 ", 2.5, false},
		{"bool true", true, 1, false},
		{"bool false", false, 0, false},
		{"nil", nil, 0, true},
		{"NaN", math.NaN(), 0, true},
		{"+inf", math.Inf(1), 0, true},
		{"-inf", math.Inf(-1), 0, true},
		{"inf string", "inf", 0, true},
		{"nan string", "nan", 0, true},
		{"unparseable string", "abc", 0, true},
		{"empty string", "", 0, true},
		{"float64 overflowing float32", 1e300, 0, true},
		{"unsupported type", struct{}{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, replaced := coerce(tt.cell)
			if got != tt.want {
				t.Errorf("coerce(%v) = %v, want %v", tt.cell, got, tt.want)
			}
			if replaced != tt.wantReplaced {
				t.Errorf("coerce(%v) replaced = %v, want %v", tt.cell, replaced, tt.wantReplaced)
			}
		})
	}
}

// frameSource is a RowSource stub for tests.
type frameSource struct {
	frame *Frame
	err   error
}

func (s frameSource) LatestFrame(_ context.Context) (*Frame, error) {
	return s.frame, s.err
}
