package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/scheduler"
	"github.com/wonny/agrimet/internal/scheduler/jobs"
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

Example:
  go run ./cmd/agrimet scheduler start
  go run ./cmd/agrimet scheduler list
  go run ./cmd/agrimet scheduler run daily_forecast`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- dataset_reload: SCHEDULE_DATASET_RELOAD (관측 CSV 변경 반영)
- daily_forecast: SCHEDULE_DAILY_FORECAST (전체 모델 예측 후 저장)
- run_cleanup: 매일 오전 3시 (RUN_RETENTION 이 지난 실행 삭제)

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
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== agrimet Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	<-cmd.Context().Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	widths := []int{16, 18, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, st.Schedule, next}, widths)
	}
	fmt.Println("\n(실행 기록은 scheduler start 프로세스 안에서만 유지됩니다)")

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJobNow(cmd.Context(), jobName)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s (%d attempt(s))", jobName, result.Duration, result.Attempts))
	PrintKeyValue("Processed", strconv.Itoa(result.Outcome.Processed), 10)
	if result.Outcome.Failed > 0 {
		PrintKeyValue("Failed", strconv.Itoa(result.Outcome.Failed), 10)
	}
	if result.Outcome.Detail != "" {
		PrintKeyValue("Detail", result.Outcome.Detail, 10)
	}
	return nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), appOptions{UseDatabase: true})
	if err != nil {
		return nil, nil, err
	}

	sc := a.cfg.Scheduler
	sched := scheduler.New(a.log)

	register := []scheduler.Job{
		jobs.NewDatasetReloadJob(a.datasets, a.cfg.Dataset.Path, sc.DatasetReloadSpec, false, a.log),
		jobs.NewDailyForecastJob(a.orchestrator, a.cfg.Forecast.DefaultHorizon, sc.DailyForecastSpec, a.log),
	}
	if pruner, ok := a.pruner(); ok && sc.RunRetention > 0 {
		register = append(register, jobs.NewRunCleanupJob(pruner, sc.RunRetention, a.log))
	}

	for _, job := range register {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
