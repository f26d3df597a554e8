package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/metrics"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "모델 입력 디버그 프로브",
	Long: `최신 피처 행을 점검하고 디버그 아티팩트를 남깁니다.

이 명령어는:
- 누락 컬럼 / NaN·inf / 타입 불일치 진단
- 정제된 행을 debug_X.npy (float32 LE 바이트)로 저장
- debug_report.json에 {columns, dtype, shape} + 진단 기록

Example:
  go run ./cmd/quant probe
  go run ./cmd/quant probe --out ./reports --source synthetic`,
	RunE: runProbe,
}

var (
	probeOut    string
	probeSource string
)

func init() {
	rootCmd.AddCommand(probeCmd)

	// Flags
	probeCmd.Flags().StringVar(&probeOut, "out", ".", "아티팩트 출력 디렉토리")
	probeCmd.Flags().StringVar(&probeSource, "source", "gateway", "시세 소스 (gateway|synthetic)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Debug Probe ===")

	d, err := initDeps()
	if err != nil {
		return err
	}

	source, err := d.newSource(probeSource, nil)
	if err != nil {
		return err
	}

	bridge := features.NewBridge(d.strategy.Features.Cols, metrics.New(), d.log)
	probe := features.NewProbe(bridge, source, d.log)

	report, err := probe.Run(cmd.Context(), probeOut)
	if err != nil {
		return fmt.Errorf("probe run: %w", err)
	}

	fmt.Printf("\n✅ Probe complete\n")
	fmt.Printf("  columns:   %d\n", len(report.Columns))
	fmt.Printf("  shape:     [%d, %d]\n", report.Shape[0], report.Shape[1])
	fmt.Printf("  nan ratio: %.3f\n", report.NaNRatio)
	fmt.Printf("  findings:  %d\n", len(report.Findings))
	for _, f := range report.Findings {
		fmt.Printf("    - %s %s (%s)\n", f.Kind, f.Column, f.Detail)
	}
	fmt.Printf("\nArtifacts written to %s: %s, %s\n", probeOut, features.ProbeArrayFile, features.ProbeReportFile)

	return nil
}
