package commands

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/backtest"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/database"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "파이프라인 상태 조회",
	Long: `데이터베이스 상태와 최근 파이프라인 결과를 조회합니다.

이 명령어는:
- 데이터베이스 연결 / 풀 상태
- 심볼별 최신 투표 시그널
- 최근 백테스트 실행 요약

Example:
  go run ./cmd/quant status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Status ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	if err := d.cfg.RequireDatabase(); err != nil {
		return err
	}

	db, err := database.New(d.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	// Database health
	health, err := db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("\n❌ Database: %s\n", health.Error)
		return err
	}
	fmt.Printf("\n✅ Database: healthy (%.0fms, %d/%d conns)\n",
		float64(health.ResponseTime.Microseconds())/1000,
		health.Stats.TotalConns, health.Stats.MaxConns)

	// Latest signals
	votes, err := voter.NewRepository(db.Pool).GetLatestAll(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load latest votes: %w", err)
	}

	fmt.Println("\nLatest signals:")
	if len(votes) == 0 {
		fmt.Println("  (no votes recorded yet)")
	}
	for _, v := range votes {
		fmt.Printf("  %-12s %-4s score=%+.3f rules=%d/%d  %s\n",
			v.Symbol, v.Signal, v.Score, v.RulesPassed, v.RulesEvaluated,
			v.At.Format("2006-01-02 15:04:05"))
	}

	// Recent backtest runs
	runs, err := backtest.NewRepository(db.Pool).GetRecentRuns(ctx, 5)
	if err != nil {
		return fmt.Errorf("load backtest runs: %w", err)
	}

	fmt.Println("\nRecent backtest runs:")
	if len(runs) == 0 {
		fmt.Println("  (no runs recorded yet)")
	}
	for _, run := range runs {
		fmt.Printf("  #%-4d %-12s bars=%-5d trades=%-4d CAGR=%+.2f%% Sharpe=%.2f MDD=%.2f%%  %s\n",
			run.ID, run.Symbol, run.Bars, run.Trades,
			run.Metrics.CAGR*100, run.Metrics.Sharpe, run.Metrics.MDD*100,
			run.RanAt.Format("2006-01-02 15:04"))
	}

	return nil
}
