package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/breadthcore/internal/scheduler"
	"github.com/wonny/breadthcore/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or inspects its jobs.

Registered jobs:
  nightly_recalculation - re-scores the trailing window (SCHEDULER_RECALC_CRON)
  result_cache_refresh  - keeps the latest-result cache warm (every 5 minutes)

Subcommands:
  start   - start the scheduler daemon
  list    - registered jobs
  run     - run one job immediately
  status  - job execution statistics

Example:
  go run ./cmd/breadth scheduler start
  go run ./cmd/breadth scheduler run nightly_recalculation`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution statistics",
		RunE:  showJobStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler wires the scheduler with the breadth jobs.
func initScheduler(cmd *cobra.Command) (*scheduler.Scheduler, *app, error) {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log.Component("scheduler"))

	recalc := jobs.NewRecalcJob(
		a.engine, a.records, a.results, a.cache,
		a.cfg.Scheduler.RecalcSchedule, a.cfg.Scheduler.RecalcWindow,
		a.cfg.Scoring.ResultCacheTTL, a.log,
	)
	if err := sched.AddJob(recalc); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("add recalc job: %w", err)
	}

	if a.cache != nil {
		refresh := jobs.NewCacheRefreshJob(a.engine, a.results, a.cache, a.cfg.Scoring.ResultCacheTTL, a.log)
		if err := sched.AddJob(refresh); err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("add cache refresh job: %w", err)
		}
	}

	return sched, a, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Breadthcore Scheduler ===")

	sched, a, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false)")
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, a, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunNow(jobName); err != nil {
		return err
	}

	// RunNow is asynchronous; poll history for the outcome.
	for {
		time.Sleep(200 * time.Millisecond)

		history, err := sched.History(jobName)
		if err != nil {
			return err
		}
		if len(history.Results) > 0 {
			result := history.Results[len(history.Results)-1]
			if result.Success {
				fmt.Printf("✅ %s completed in %s\n", jobName, result.Duration)
			} else {
				fmt.Printf("❌ %s failed: %s\n", jobName, result.Error)
			}
			return nil
		}
	}
}

func showJobStatus(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := sched.Stats()
	if len(stats) == 0 {
		fmt.Println("No jobs registered")
		return nil
	}

	fmt.Printf("%-24s %-20s %-10s %-10s %s\n", "JOB", "SCHEDULE", "RUNS", "FAILURES", "SUCCESS RATE")
	for name, st := range stats {
		fmt.Printf("%-24s %-20s %-10d %-10d %.0f%%\n",
			name, st.Schedule, st.TotalRuns, st.FailureCount, st.SuccessRate*100)
	}

	return nil
}
