package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/pkg/logger"
)

// Bridge failure modes. Callers match with errors.Is.
var (
	ErrEmptyFrame = errors.New("feature frame has no rows")
	ErrNoColumns  = errors.New("no feature columns configured")
)

// RowSource supplies the newest raw feature frame.
type RowSource interface {
	LatestFrame(ctx context.Context) (*Frame, error)
}

// Report describes one bridge build.
type Report struct {
	MissingCols []string `json:"missing_cols"`
	Replaced    int      `json:"replaced"`
	Total       int      `json:"total"`
	NaNRatio    float64  `json:"nan_ratio"`
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
}

// Bridge sanitises raw frames into model-ready float32 rows.
// ⭐ SSOT: 피처 정제 규칙은 이 파일에서만
//
// Every configured column appears in the output in order. Missing
// columns are filled with 0 and reported, values that cannot be used
// as finite numbers are replaced with 0 and counted, and the
// features_nan_rate gauge is set to replaced/total for the build.
type Bridge struct {
	cols    []string
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewBridge creates a bridge for the given ordered feature columns.
func NewBridge(cols []string, m *metrics.Metrics, log *logger.Logger) *Bridge {
	return &Bridge{
		cols:    append([]string(nil), cols...),
		metrics: m,
		logger:  log,
	}
}

// Columns returns the configured feature column order.
func (b *Bridge) Columns() []string {
	return b.cols
}

// BuildLatestRow fetches the newest frame from the source and builds
// the sanitised feature row from its last row.
func (b *Bridge) BuildLatestRow(ctx context.Context, source RowSource) (*contracts.FeatureRow, *Report, error) {
	frame, err := source.LatestFrame(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch latest frame: %w", err)
	}
	return b.BuildRow(frame)
}

// BuildRow builds the sanitised feature row from the last row of frame.
func (b *Bridge) BuildRow(frame *Frame) (*contracts.FeatureRow, *Report, error) {
	if len(b.cols) == 0 {
		return nil, nil, ErrNoColumns
	}
	if frame == nil || frame.NumRows() == 0 {
		return nil, nil, ErrEmptyFrame
	}

	last := frame.NumRows() - 1
	values := make([]float32, len(b.cols))
	report := &Report{
		MissingCols: []string{},
		Total:       len(b.cols),
		Rows:        1,
		Cols:        len(b.cols),
	}

	for i, col := range b.cols {
		if !frame.HasColumn(col) {
			report.MissingCols = append(report.MissingCols, col)
			values[i] = 0
			if b.logger != nil {
				b.logger.Warnf("missing column %s, filling with 0", col)
			}
			continue
		}
		cell, _ := frame.Cell(last, col)
		v, replaced := coerce(cell)
		values[i] = v
		if replaced {
			report.Replaced++
		}
	}

	report.NaNRatio = float64(report.Replaced) / float64(report.Total)
	if report.Replaced > 0 && b.logger != nil {
		b.logger.Warnf("found %d NaN/inf values, filled with 0", report.Replaced)
	}
	if b.metrics != nil {
		b.metrics.SetNaNRate(report.NaNRatio)
	}

	row := &contracts.FeatureRow{
		Columns: append([]string(nil), b.cols...),
		Values:  values,
		BuiltAt: time.Now(),
	}
	return row, report, nil
}

// coerce converts a raw cell to float32 and reports whether the value
// had to be replaced with zero. Numeric strings parse to their value,
// bools map to 1/0, and NaN/inf, nil or unparseable cells become 0.
func coerce(cell interface{}) (float32, bool) {
	switch v := cell.(type) {
	case nil:
		return 0, true
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float32(v), false
	case int32:
		return float32(v), false
	case int64:
		return finite(float64(v))
	case uint:
		return finite(float64(v))
	case uint64:
		return finite(float64(v))
	case bool:
		if v {
			return 1, false
		}
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, true
		}
		return finite(f)
	default:
		return 0, true
	}
}

// finite rejects NaN/inf, including float64 values that overflow float32.
func finite(f float64) (float32, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true
	}
	g := float32(f)
	if math.IsInf(float64(g), 0) {
		return 0, true
	}
	return g, false
}
