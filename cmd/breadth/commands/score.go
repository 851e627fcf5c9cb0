package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/normalize"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one breadth record",
	Long: `Scores a single record with the active algorithm.

The record comes from the database (--date) or from a JSON file whose
top-level object maps field names to values (--file). Earlier stored
records feed trend direction and volatility adjustment.

Example:
  go run ./cmd/breadth score --date 2024-01-15
  go run ./cmd/breadth score --file record.json --save`,
	RunE: runScore,
}

var (
	scoreDate string
	scoreFile string
	scoreSave bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "record date (YYYY-MM-DD)")
	scoreCmd.Flags().StringVar(&scoreFile, "file", "", "JSON file with record fields")
	scoreCmd.Flags().BoolVar(&scoreSave, "save", false, "persist the result")
}

func runScore(cmd *cobra.Command, args []string) error {
	if scoreDate == "" && scoreFile == "" {
		return fmt.Errorf("provide --date or --file")
	}

	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	raw, date, err := loadRecord(ctx, a)
	if err != nil {
		return err
	}

	window, err := loadWindow(ctx, a, date)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	result, err := a.engine.Calculate(ctx, raw, nil, window)
	if err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	if scoreSave {
		if err := a.results.Save(ctx, result); err != nil {
			return fmt.Errorf("persist result: %w", err)
		}
	}

	printResult(result)
	return nil
}

func loadRecord(ctx context.Context, a *app) (*contracts.RawBreadthRecord, time.Time, error) {
	if scoreFile != "" {
		data, err := os.ReadFile(scoreFile)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("read record file: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, time.Time{}, fmt.Errorf("parse record file: %w", err)
		}
		raw := &contracts.RawBreadthRecord{Fields: fields, Source: scoreFile, ImportFormat: "json"}
		date, _ := time.Parse("2006-01-02", fmt.Sprintf("%v", fields["date"]))
		return raw, date, nil
	}

	date, err := time.Parse("2006-01-02", scoreDate)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid --date (expected YYYY-MM-DD)")
	}
	raw, err := a.records.FetchDate(ctx, date)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch record: %w", err)
	}
	return raw, date, nil
}

// loadWindow assembles the causal history strictly before date.
func loadWindow(ctx context.Context, a *app, date time.Time) (*contracts.HistoricalWindow, error) {
	window := &contracts.HistoricalWindow{}
	if date.IsZero() {
		return window, nil
	}
	before := date.AddDate(0, 0, -1)

	raws, err := a.records.FetchRange(ctx, time.Time{}, before)
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		rec, err := normalize.Standardize(raw)
		if err != nil {
			continue
		}
		window.Records = append(window.Records, rec)
	}

	prior, err := a.results.Range(ctx, a.engine.CurrentConfig().Algorithm, time.Time{}, before)
	if err != nil {
		return nil, err
	}
	window.Results = prior
	return window, nil
}

func printResult(result *contracts.BreadthResult) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Breadth Score: %s\n", result.Date.Format("2006-01-02"))
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Score      : %.2f (normalized %.2f)\n", result.Score, result.NormalizedScore)
	fmt.Printf("  Confidence : %.2f\n", result.Confidence)
	fmt.Printf("  Phase      : %s (%s, trend %s)\n",
		result.MarketCondition.Phase, result.MarketCondition.Strength, result.MarketCondition.TrendDirection)
	fmt.Printf("  Components : primary %.1f / secondary %.1f / reference %.1f / sector %.1f\n",
		result.Components.Primary, result.Components.Secondary,
		result.Components.Reference, result.Components.Sector)
	fmt.Printf("  Algorithm  : %s (%s)\n", result.Metadata.AlgorithmUsed, result.Metadata.ConfigVersion)
	if len(result.Metadata.MissingIndicators) > 0 {
		fmt.Printf("  Missing    : %d indicators\n", len(result.Metadata.MissingIndicators))
	}
	for _, warning := range result.Metadata.Warnings {
		fmt.Printf("  ⚠ %s\n", warning)
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}
