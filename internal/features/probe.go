package features

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/futuquant/pkg/logger"
)

// Probe artifact names.
const (
	ProbeArrayFile  = "debug_X.npy"
	ProbeReportFile = "debug_report.json"
)

// Finding kinds reported by Inspect.
const (
	FindingMissingColumn = "missing_column"
	FindingInvalidValues = "invalid_values"
	FindingTypeMismatch  = "type_mismatch"
)

// Finding describes one data problem the probe surfaced.
type Finding struct {
	Kind   string `json:"kind"`
	Column string `json:"column"`
	Count  int    `json:"count,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ProbeReport is the JSON document written next to the feature dump.
type ProbeReport struct {
	Columns  []string  `json:"columns"`
	Dtype    string    `json:"dtype"`
	Shape    [2]int    `json:"shape"`
	NaNRatio float64   `json:"nan_ratio"`
	Findings []Finding `json:"findings,omitempty"`
}

// Probe runs a one-shot feature extraction and dumps diagnostics.
type Probe struct {
	bridge *Bridge
	source RowSource
	logger *logger.Logger
}

// NewProbe creates a probe around an existing bridge and source.
func NewProbe(bridge *Bridge, source RowSource, log *logger.Logger) *Probe {
	return &Probe{bridge: bridge, source: source, logger: log}
}

// Inspect reports data problems in a frame without building a row:
// expected columns that are absent, cells that cannot be used as
// finite numbers, and columns whose raw cells mix value kinds
// across rows.
func (p *Probe) Inspect(frame *Frame) []Finding {
	var findings []Finding

	for _, col := range p.bridge.Columns() {
		if !frame.HasColumn(col) {
			findings = append(findings, Finding{
				Kind:   FindingMissingColumn,
				Column: col,
				Detail: "expected column absent, bridge fills with 0",
			})
		}
	}

	for _, col := range frame.Columns() {
		cells, _ := frame.Column(col)

		invalid := 0
		kinds := map[string]bool{}
		for _, cell := range cells {
			if _, replaced := coerce(cell); replaced {
				invalid++
			}
			kinds[cellKind(cell)] = true
		}

		if invalid > 0 {
			findings = append(findings, Finding{
				Kind:   FindingInvalidValues,
				Column: col,
				Count:  invalid,
				Detail: "NaN/inf or unparseable cells, bridge replaces with 0",
			})
		}
		if len(kinds) > 1 {
			names := make([]string, 0, len(kinds))
			for k := range kinds {
				names = append(names, k)
			}
			sort.Strings(names)
			findings = append(findings, Finding{
				Kind:   FindingTypeMismatch,
				Column: col,
				Detail: "mixed cell kinds: " + strings.Join(names, ", "),
			})
		}
	}

	return findings
}

// Run fetches the latest frame, inspects it, builds the sanitised row
// and writes debug_X.npy plus debug_report.json into outDir.
func (p *Probe) Run(ctx context.Context, outDir string) (*ProbeReport, error) {
	frame, err := p.source.LatestFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest frame: %w", err)
	}

	findings := p.Inspect(frame)

	row, bridgeReport, err := p.bridge.BuildRow(frame)
	if err != nil {
		return nil, fmt.Errorf("feature bridge failed: %w", err)
	}

	report := &ProbeReport{
		Columns:  row.Columns,
		Dtype:    "float32",
		Shape:    [2]int{1, row.Dim()},
		NaNRatio: bridgeReport.NaNRatio,
		Findings: findings,
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := writeFloat32LE(filepath.Join(outDir, ProbeArrayFile), row.Values); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ProbeArrayFile, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal probe report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ProbeReportFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ProbeReportFile, err)
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"columns":   len(report.Columns),
			"nan_ratio": report.NaNRatio,
			"findings":  len(report.Findings),
			"out":       outDir,
		}).Info("Debug probe complete")
	}

	return report, nil
}

// writeFloat32LE dumps values as raw little-endian float32 bytes, the
// layout a numpy float32 array exports via tobytes().
func writeFloat32LE(path string, values []float32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return os.WriteFile(path, buf, 0o644)
}

// cellKind classifies a raw cell for type-consistency checks.
func cellKind(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return "nil"
	case float64, float32, int, int32, int64, uint, uint64:
		return "numeric"
	case bool:
		return "bool"
	case string:
		if _, replaced := coerce(v); !replaced {
			return "numeric_string"
		}
		return "string"
	default:
		return "other"
	}
}
