package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/backtest"
	"github.com/wonny/futuquant/pkg/database"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "워크포워드 백테스트 실행",
	Long: `룰 투표 전략을 봉 단위로 재생합니다.

이 명령어는:
- 워밍업 이후 매 봉마다 룰 컨텍스트 재구성 (미래 데이터 차단)
- 롱/플랫 포지션, 양방향 수수료 적용
- backtest_trades.csv / backtest_equity.csv / backtest_summary.md 생성
- DATABASE_URL 설정 시 실행 요약 저장

Example:
  go run ./cmd/quant backtest --symbol HK.00700
  go run ./cmd/quant backtest --source synthetic --bars 1000 --cost-bps 8
  go run ./cmd/quant backtest batch`,
	RunE: runBacktest,
}

// backtestBatchCmd represents the batch subcommand
var backtestBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "멀티 심볼 배치 백테스트",
	Long: `설정된 모든 심볼을 ATR 스케일 비용 모델로 백테스트합니다.

이 명령어는:
- 심볼별 동적 비용 (spread/2 + slip + slip_atr_mult·ATR%)
- 생존 심볼 균등가중 포트폴리오 곡선 합성
- 심볼별 trades/equity CSV + backtest_summary.html 생성

Example:
  go run ./cmd/quant backtest batch
  go run ./cmd/quant backtest batch --source synthetic --out ./reports`,
	RunE: runBacktestBatch,
}

var (
	backtestSymbol  string
	backtestBars    int
	backtestCostBps float64
	backtestSource  string
	backtestOut     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestBatchCmd)

	// Flags
	backtestCmd.PersistentFlags().StringVar(&backtestSource, "source", "gateway", "시세 소스 (gateway|synthetic|db)")
	backtestCmd.PersistentFlags().StringVar(&backtestOut, "out", "reports", "리포트 출력 디렉토리")
	backtestCmd.PersistentFlags().IntVar(&backtestBars, "bars", 0, "백테스트 봉 수 (기본: config.yaml)")
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "대상 심볼 (기본: config.yaml futu.symbol)")
	backtestCmd.Flags().Float64Var(&backtestCostBps, "cost-bps", 0, "왕복 절반당 비용 bps (기본: config.yaml)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Backtest ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	applyBacktestFlags(d)

	symbol := backtestSymbol
	if symbol == "" {
		symbol = d.strategy.Futu.Symbol
	}

	db, repo, err := openBacktestRepo(d)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	source, err := d.newSource(backtestSource, db)
	if err != nil {
		return err
	}

	candles, err := source.Klines(cmd.Context(), symbol, d.strategy.Futu.KType, d.strategy.Backtest.Bars)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}

	engine := backtest.NewEngine(d.rules, nil, d.strategy.Backtest, d.log)
	result, err := engine.Run(cmd.Context(), symbol, candles)
	if err != nil {
		return err
	}

	reporter := backtest.NewReporter(backtestOut, d.log)
	if err := reporter.WriteSingle(result); err != nil {
		return err
	}
	reporter.PrintSummary(os.Stdout, result)

	if repo != nil {
		if err := repo.SaveRun(cmd.Context(), result, d.strategy.Backtest.CostBps); err != nil {
			d.log.WithError(err).Warn("Run summary not persisted")
		}
	}

	fmt.Printf("\n✅ Reports written to %s\n", backtestOut)
	return nil
}

func runBacktestBatch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Batch Backtest ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	applyBacktestFlags(d)

	db, repo, err := openBacktestRepo(d)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	source, err := d.newSource(backtestSource, db)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(d.rules, nil, d.strategy.Backtest, d.log)
	batch, err := engine.RunBatch(cmd.Context(), source, backtest.BatchOptions{
		Symbols:      d.strategy.ActiveSymbols(),
		KType:        d.strategy.Futu.KType,
		Bars:         d.strategy.Backtest.Bars,
		ShowProgress: true,
	})
	if err != nil {
		return err
	}

	reporter := backtest.NewReporter(backtestOut, d.log)
	if err := reporter.WriteBatch(batch); err != nil {
		return err
	}
	reporter.PrintBatchSummary(os.Stdout, batch)

	if repo != nil {
		for _, result := range batch.Results {
			// Batch costs vary per bar; zero marks the dynamic model.
			if err := repo.SaveRun(cmd.Context(), result, 0); err != nil {
				d.log.WithError(err).WithField("symbol", result.Symbol).Warn("Run summary not persisted")
			}
		}
	}

	fmt.Printf("\n✅ Reports written to %s\n", backtestOut)
	return nil
}

// applyBacktestFlags folds command line overrides into the strategy.
func applyBacktestFlags(d *deps) {
	if backtestBars > 0 {
		d.strategy.Backtest.Bars = backtestBars
	}
	if backtestCostBps > 0 {
		d.strategy.Backtest.CostBps = backtestCostBps
	}
}

// openBacktestRepo opens the run repository when a database is
// configured. Backtests stay file-only without one.
func openBacktestRepo(d *deps) (*database.DB, *backtest.Repository, error) {
	if d.cfg.Database.URL == "" {
		return nil, nil, nil
	}
	db, err := database.New(d.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, backtest.NewRepository(db.Pool), nil
}
