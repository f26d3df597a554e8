package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	rulesFile    string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "futuquant - FUTU OpenD 기반 룰 투표 트레이딩 파이프라인",
	Long: `futuquant Unified CLI

FUTU OpenD 게이트웨이에서 시세를 받아 피처 정제, 룰 투표,
백테스트, 스크리닝까지 하나의 바이너리로 실행합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant stream --once
  go run ./cmd/quant probe --out ./reports
  go run ./cmd/quant voter
  go run ./cmd/quant backtest --symbol HK.00700`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "rules file (default is ./rules.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
