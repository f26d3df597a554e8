package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/model"
	"github.com/wonny/futuquant/internal/stream"
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "예측 스트림 실행",
	Long: `시세 조회 → 피처 브릿지 → 모델 예측 루프를 실행합니다.

이 명령어는:
- 최신 시세에서 피처 행 구성 (누락 컬럼 0 채움, NaN/inf → 0)
- features_nan_rate 게이지 갱신
- 데모 로지스틱 모델로 확률 산출

Example:
  go run ./cmd/quant stream --once
  go run ./cmd/quant stream --source synthetic --interval 5`,
	RunE: runStream,
}

var (
	streamOnce     bool
	streamSource   string
	streamInterval int
)

func init() {
	rootCmd.AddCommand(streamCmd)

	// Flags
	streamCmd.Flags().BoolVar(&streamOnce, "once", false, "한 번만 예측하고 종료")
	streamCmd.Flags().StringVar(&streamSource, "source", "gateway", "시세 소스 (gateway|synthetic)")
	streamCmd.Flags().IntVar(&streamInterval, "interval", 5, "예측 주기 (초)")
}

func runStream(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Stream Runner ===")

	d, err := initDeps()
	if err != nil {
		return err
	}

	source, err := d.newSource(streamSource, nil)
	if err != nil {
		return err
	}

	m := metrics.New()
	bridge := features.NewBridge(d.strategy.Features.Cols, m, d.log)
	runner := stream.NewRunner(source, bridge, model.NewLogistic(),
		d.newMetricsServer(m), time.Duration(streamInterval)*time.Second, d.log)

	if streamOnce {
		prob, err := runner.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("prediction: %.3f\n", prob)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
