package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/scheduler/jobs"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/database"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "보존 기간 초과 데이터 정리",
	Long: `보존 기간을 넘긴 캔들과 투표 스냅샷을 삭제합니다.

스케줄러의 maintenance 작업과 같은 경로를 즉시 한 번 실행합니다.

Example:
  go run ./cmd/quant cleanup
  go run ./cmd/quant cleanup --days 365`,
	RunE: runCleanup,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)

	// Flags
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", jobs.DefaultRetentionDays, "보존 기간 (일)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Cleanup ===")

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
	cutoff := time.Now().AddDate(0, 0, -cleanupDays)
	fmt.Printf("\nRetention: %d days (cutoff %s)\n", cleanupDays, cutoff.Format("2006-01-02"))

	candles, err := marketdata.NewRepository(db.Pool).PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune candles: %w", err)
	}
	fmt.Printf("  candles removed: %d\n", candles)

	votes, err := voter.NewRepository(db.Pool).PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune votes: %w", err)
	}
	fmt.Printf("  votes removed:   %d\n", votes)

	fmt.Println("\n✅ Cleanup complete")
	return nil
}
