package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/futuquant/internal/alerts"
	"github.com/wonny/futuquant/internal/external/futu"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/scheduler"
	"github.com/wonny/futuquant/internal/scheduler/jobs"
	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/database"
	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler run kline_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 모든 작업을 스케줄합니다.

등록되는 작업:
- kline_collection: 매시 정각 (캔들 수집)
- voter_cycle: 매분 (룰 투표)
- maintenance: 매일 새벽 3시 (보존 기간 초과 데이터 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showJobStats,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== futuquant Scheduler ===")

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job started (running in background)")
	return nil
}

func showJobStats(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// initScheduler wires the scheduler with every pipeline job. The
// returned cleanup closes the shared connections.
func initScheduler() (*scheduler.Scheduler, func(), error) {
	d, err := initDeps()
	if err != nil {
		return nil, nil, err
	}
	if err := d.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	db, err := database.New(d.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(d.cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	cleanup := func() {
		rdb.Close()
		db.Close()
	}

	// Shared clients and repositories
	client := futu.NewClient(d.strategy.Futu, httputil.New(d.log), d.log)
	candleRepo := marketdata.NewRepository(db.Pool)
	voteRepo := voter.NewRepository(db.Pool)

	// Voter pipeline pieces: the scheduled cycle votes from the live
	// gateway, persisting snapshots and firing alerts like the
	// standalone runner.
	source := marketdata.NewGatewaySource(client, d.strategy.Futu)
	am := alerts.NewManager(d.strategy.Alerts, d.log)
	if rdb.Enabled() {
		am.SetThrottle(alerts.NewRedisThrottle(rdb, d.log))
	}
	engine := voter.NewEngine(source, d.rules, nil, nil, d.strategy, d.log)
	runner := voter.NewRunner(engine, d.strategy, metrics.New(), am, voteRepo, d.log)

	sched := scheduler.New(d.log)

	// Register jobs
	sched.AddJob(jobs.NewKlineCollectionJob(client, candleRepo, d.strategy, d.log))
	sched.AddJob(jobs.NewVoterCycleJob(runner, d.log))
	sched.AddJob(jobs.NewMaintenanceJob(candleRepo, voteRepo, 0, d.log))

	return sched, cleanup, nil
}
