package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/external/futu"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/scheduler/jobs"
	"github.com/wonny/futuquant/pkg/database"
	"github.com/wonny/futuquant/pkg/httputil"
)

// fetcherCmd represents the fetcher command
var fetcherCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "데이터 수집 도구",
	Long: `FUTU OpenD 게이트웨이에서 캔들을 수집합니다.

Example:
  go run ./cmd/quant fetcher collect`,
}

// fetcherCollectCmd represents the collect subcommand
var fetcherCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "캔들 수집 실행",
	Long: `설정된 모든 심볼의 캔들을 받아 데이터베이스에 저장합니다.

스케줄러의 kline_collection 작업과 같은 경로를 한 번만 실행하므로,
db 소스 백테스트 전에 데이터를 채울 때 사용합니다.

Example:
  go run ./cmd/quant fetcher collect`,
	RunE: runFetcherCollect,
}

func init() {
	rootCmd.AddCommand(fetcherCmd)
	fetcherCmd.AddCommand(fetcherCollectCmd)
}

func runFetcherCollect(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Data Fetcher ===")

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

	client := futu.NewClient(d.strategy.Futu, httputil.New(d.log), d.log)
	repo := marketdata.NewRepository(db.Pool)

	job := jobs.NewKlineCollectionJob(client, repo, d.strategy, d.log)
	if err := job.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("\n✅ Collection complete")
	return nil
}
