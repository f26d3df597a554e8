package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/external/fundamentals"
	"github.com/wonny/futuquant/internal/screener"
	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/redis"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "룰 스크리닝 실행",
	Long: `설정된 모든 심볼에 룰셋을 평가하고 결과 CSV를 남깁니다.

이 명령어는:
- 심볼 × 룰 전체 조합 평가
- screen_results.csv (symbol, id, name, rule, pass) 생성

Example:
  go run ./cmd/quant screen
  go run ./cmd/quant screen --source synthetic --out ./reports`,
	RunE: runScreen,
}

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "스크리닝 결과 설명 리포트",
	Long: `마지막 screen 결과에서 통과 룰 상위 심볼을 설명합니다.

이 명령어는:
- screen_results.csv에서 심볼별 통과 룰 집계
- 룰이 참조한 식별자의 현재 값과 함께 markdown 렌더
- screener_explain.md 생성

Example:
  go run ./cmd/quant explain --top 10`,
	RunE: runExplain,
}

var (
	screenSource string
	screenOut    string
	explainTop   int
)

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(explainCmd)

	// Flags
	screenCmd.Flags().StringVar(&screenSource, "source", "gateway", "시세 소스 (gateway|synthetic)")
	screenCmd.Flags().StringVar(&screenOut, "out", "reports", "결과 출력 디렉토리")
	explainCmd.Flags().StringVar(&screenSource, "source", "gateway", "시세 소스 (gateway|synthetic)")
	explainCmd.Flags().StringVar(&screenOut, "out", "reports", "결과 출력 디렉토리")
	explainCmd.Flags().IntVar(&explainTop, "top", 10, "설명할 상위 심볼 수")
}

func runScreen(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Screener ===")

	s, err := initScreener()
	if err != nil {
		return err
	}

	rows, err := s.Screen(cmd.Context())
	if err != nil {
		return err
	}
	if err := s.WriteResults(screenOut, rows); err != nil {
		return err
	}

	fmt.Printf("\n✅ %d rows written to %s\n", len(rows), filepath.Join(screenOut, screener.ResultsFile))
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Screener Explain ===")

	s, err := initScreener()
	if err != nil {
		return err
	}

	if err := s.Explain(cmd.Context(), screenOut, explainTop); err != nil {
		return err
	}

	fmt.Printf("\n✅ Report written to %s\n", filepath.Join(screenOut, screener.ExplainFile))
	return nil
}

// initScreener wires a screener against the selected source.
func initScreener() (*screener.Screener, error) {
	d, err := initDeps()
	if err != nil {
		return nil, err
	}

	source, err := d.newSource(screenSource, nil)
	if err != nil {
		return nil, err
	}

	var funds screener.FundamentalsSource
	if screenSource == "gateway" {
		rdb, err := redis.New(d.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		funds = fundamentals.NewScraper(httputil.New(d.log), rdb, d.log)
	}

	return screener.New(source, d.rules, funds, d.strategy, d.log), nil
}
