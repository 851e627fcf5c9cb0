package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/breadthcore/internal/engine"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recalculate scores over stored records",
	Long: `Re-scores stored records in date order. Each record sees only
strictly earlier records as history, so the run reproduces what live
scoring would have produced.

Example:
  go run ./cmd/breadth backfill
  go run ./cmd/breadth backfill --from 2024-01-01 --to 2024-03-31 --save`,
	RunE: runBackfill,
}

var (
	backfillFrom string
	backfillTo   string
	backfillSave bool
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "start date (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "end date (YYYY-MM-DD)")
	backfillCmd.Flags().BoolVar(&backfillSave, "save", false, "persist successful results")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Breadthcore Backfill ===")

	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := engine.HistoricalOptions{
		BatchSize: a.cfg.Scoring.BatchSize,
		OnProgress: func(p engine.Progress) bool {
			fmt.Printf("[backfill] %d/%d processed (%d ok, %d failed)\n",
				p.Processed, p.Total, p.Successful, p.Failed)
			return true
		},
	}
	if backfillFrom != "" {
		opts.StartDate, err = time.Parse("2006-01-02", backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from (expected YYYY-MM-DD)")
		}
	}
	if backfillTo != "" {
		opts.EndDate, err = time.Parse("2006-01-02", backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to (expected YYYY-MM-DD)")
		}
	}

	summary, err := a.engine.CalculateHistoricalFrom(ctx, a.records, opts)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	if backfillSave && len(summary.Results) > 0 {
		if err := a.results.SaveBatch(ctx, summary.Results); err != nil {
			return fmt.Errorf("persist results: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("✅ Backfill completed in %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("   %d successful, %d failed (%.1f records/s)\n",
		summary.Successful, summary.Failed, summary.Throughput)
	if summary.Cancelled {
		fmt.Println("   ⚠ run was cancelled before completion")
	}
	if backfillSave {
		fmt.Printf("   %d results persisted\n", len(summary.Results))
	}

	return nil
}
