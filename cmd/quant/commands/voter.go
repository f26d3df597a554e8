package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/alerts"
	"github.com/wonny/futuquant/internal/external/fundamentals"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/database"
	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/redis"
)

// voterCmd represents the voter command
var voterCmd = &cobra.Command{
	Use:   "voter",
	Short: "룰 투표 러너 실행",
	Long: `설정된 모든 심볼을 룰셋으로 평가하는 투표 루프를 실행합니다.

이 명령어는:
- 심볼별 시세 + 펀더멘털로 룰 컨텍스트 구성
- 가중 점수 → BUY/HOLD/SELL 시그널 산출
- voter_* 게이지 갱신, PnLDrop/ScoreTooLow 알림
- DATABASE_URL 설정 시 투표 스냅샷 저장

Example:
  go run ./cmd/quant voter --once
  go run ./cmd/quant voter --source synthetic`,
	RunE: runVoter,
}

var (
	voterOnce   bool
	voterSource string
)

func init() {
	rootCmd.AddCommand(voterCmd)

	// Flags
	voterCmd.Flags().BoolVar(&voterOnce, "once", false, "한 사이클만 실행하고 종료")
	voterCmd.Flags().StringVar(&voterSource, "source", "gateway", "시세 소스 (gateway|synthetic|db)")
}

func runVoter(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Voter Runner ===")

	d, err := initDeps()
	if err != nil {
		return err
	}

	// Optional persistence
	var db *database.DB
	var repo *voter.Repository
	if d.cfg.Database.URL != "" {
		db, err = database.New(d.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = voter.NewRepository(db.Pool)
		d.log.Info("Vote persistence enabled")
	}

	source, err := d.newSource(voterSource, db)
	if err != nil {
		return err
	}

	rdb, err := redis.New(d.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	var funds voter.FundamentalsSource
	if voterSource == "gateway" {
		funds = fundamentals.NewScraper(httputil.New(d.log), rdb, d.log)
	}

	am := alerts.NewManager(d.strategy.Alerts, d.log)
	if rdb.Enabled() {
		am.SetThrottle(alerts.NewRedisThrottle(rdb, d.log))
	}

	m := metrics.New()
	engine := voter.NewEngine(source, d.rules, funds, nil, d.strategy, d.log)
	runner := voter.NewRunner(engine, d.strategy, m, am, repo, d.log)

	if voterOnce {
		return runner.RunOnce(cmd.Context())
	}

	// Metrics exposition lives with the long-running loop
	if server := d.newMetricsServer(m); server != nil {
		go func() {
			if err := server.Start(); err != nil {
				d.log.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				d.log.WithError(err).Warn("Metrics server shutdown failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
