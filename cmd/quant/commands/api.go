package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/api"
	"github.com/wonny/futuquant/internal/api/handlers"
	"github.com/wonny/futuquant/internal/backtest"
	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/database"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 실행",
	Long: `HTTP API 서버를 시작합니다.

제공 엔드포인트:
- GET  /health                    - 헬스 체크
- GET  /api/v1/signals            - 심볼별 최신 시그널
- GET  /api/v1/signals/{symbol}   - 심볼 시그널 이력
- GET  /api/v1/features/latest    - 최신 모델 입력 행 + 정제 리포트
- POST /api/v1/probe              - 디버그 프로브 실행
- GET  /api/v1/backtest/runs      - 최근 백테스트 실행 요약

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8089 --source synthetic`,
	RunE: runAPI,
}

var (
	apiPort   string
	apiSource string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "리슨 포트 (기본: PORT 환경변수)")
	apiCmd.Flags().StringVar(&apiSource, "source", "gateway", "시세 소스 (gateway|synthetic|db)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant API Server ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	if apiPort != "" {
		d.cfg.Port = apiPort
	}
	if err := d.cfg.RequireDatabase(); err != nil {
		return err
	}

	db, err := database.New(d.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	source, err := d.newSource(apiSource, db)
	if err != nil {
		return err
	}

	// Feature pipeline pieces shared by /features/latest and /probe
	m := metrics.New()
	bridge := features.NewBridge(d.strategy.Features.Cols, m, d.log)
	probe := features.NewProbe(bridge, source, d.log)

	signals := handlers.NewSignalsHandler(voter.NewRepository(db.Pool), d.log)
	feats := handlers.NewFeaturesHandler(bridge, probe, source, d.log)
	backtests := handlers.NewBacktestHandler(backtest.NewRepository(db.Pool), d.log)

	router := api.NewRouter(signals, feats, backtests, d.log)
	server := api.New(d.cfg, d.log, router)

	if ms := d.newMetricsServer(m); ms != nil {
		go func() {
			if err := ms.Start(); err != nil {
				d.log.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ms.Shutdown(shutdownCtx); err != nil {
				d.log.WithError(err).Warn("Metrics server shutdown failed")
			}
		}()
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ API server listening on :%s\n", d.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}
