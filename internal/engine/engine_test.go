package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wonny/breadthcore/internal/algorithms"
	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

func newTestEngine() *Engine {
	log := logger.NewNop()
	return New(algorithms.NewRegistry(log), calcconfig.NewMemoryStore(), log)
}

func rawRecord(date string, up, down float64) *contracts.RawBreadthRecord {
	return &contracts.RawBreadthRecord{
		Fields: map[string]any{
			"date":                   date,
			"stocks_up_4pct_daily":   up,
			"stocks_down_4pct_daily": down,
			"t2108":                  45.0,
			"ratio_5day":             1.2,
		},
	}
}

func TestEngineCalculate(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	result, err := e.Calculate(ctx, rawRecord("2024-01-15", 358, 115), nil, nil)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("wrong date: %v", result.Date)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score out of range: %v", result.Score)
	}
	if result.Metadata.AlgorithmUsed != contracts.AlgorithmSixFactor {
		t.Errorf("engine must start on six_factor, got %s", result.Metadata.AlgorithmUsed)
	}
	if result.Metadata.CalculationTime <= 0 {
		t.Error("calculation time not recorded")
	}
	if len(result.Metadata.Warnings) == 0 {
		t.Error("sparse record must carry missing-field warnings")
	}

	entries := e.Telemetry().Entries()
	if len(entries) != 1 || !entries[0].Success {
		t.Errorf("expected one successful telemetry entry, got %+v", entries)
	}
}

func TestEngineCalculateInvalidRecord(t *testing.T) {
	e := newTestEngine()

	_, err := e.Calculate(context.Background(), &contracts.RawBreadthRecord{
		Fields: map[string]any{"stocks_up_4pct_daily": 100},
	}, nil, nil)

	var verr algorithms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Reasons) == 0 {
		t.Error("validation error must carry reasons")
	}

	entries := e.Telemetry().Entries()
	if len(entries) != 1 || entries[0].Success {
		t.Errorf("failure must still be recorded in telemetry, got %+v", entries)
	}
}

func TestEngineCalculateRejectsInvalidOverrideConfig(t *testing.T) {
	e := newTestEngine()

	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)
	cfg.Weights = contracts.Weights{Primary: 0.9, Secondary: 0.9, Reference: 0.9}

	_, err := e.Calculate(context.Background(), rawRecord("2024-01-15", 358, 115), cfg, nil)
	var cerr calcconfig.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestSwitchAlgorithm(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	if err := e.SwitchAlgorithm(ctx, contracts.AlgorithmSectorWeighted); err != nil {
		t.Fatalf("SwitchAlgorithm: %v", err)
	}
	if got := e.CurrentConfig().Algorithm; got != contracts.AlgorithmSectorWeighted {
		t.Errorf("active algorithm = %s", got)
	}

	// Overrides apply on top of the default.
	err := e.SwitchAlgorithm(ctx, contracts.AlgorithmSixFactor, func(cfg *contracts.CalculationConfig) {
		cfg.MarketConditions.Bull = 65
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.CurrentConfig().MarketConditions.Bull; got != 65 {
		t.Errorf("override not applied: bull threshold = %v", got)
	}

	// An invalid override leaves the previous config active.
	err = e.SwitchAlgorithm(ctx, contracts.AlgorithmNormalized, func(cfg *contracts.CalculationConfig) {
		cfg.MarketConditions.StrongBear = 99
	})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if got := e.CurrentConfig().Algorithm; got != contracts.AlgorithmSixFactor {
		t.Errorf("failed switch must not change the active config, got %s", got)
	}
}

func TestSwitchAlgorithmUnknown(t *testing.T) {
	e := newTestEngine()

	err := e.SwitchAlgorithm(context.Background(), "gradient_boost")
	var unknownErr algorithms.UnknownAlgorithmError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownAlgorithmError, got %v", err)
	}
}

func TestDefaultConfigPrefersStore(t *testing.T) {
	log := logger.NewNop()
	store := calcconfig.NewMemoryStore()
	e := New(algorithms.NewRegistry(log), store, log)
	ctx := context.Background()

	// No stored default: builtin wins.
	cfg, err := e.DefaultConfig(ctx, contracts.AlgorithmSixFactor)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Weights.Primary != 0.40 {
		t.Errorf("unexpected builtin default: %+v", cfg.Weights)
	}

	// A stored default takes precedence.
	custom := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)
	custom.Weights = contracts.Weights{Primary: 0.5, Secondary: 0.25, Reference: 0.25}
	version, err := store.Create(ctx, custom)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetDefault(ctx, version); err != nil {
		t.Fatal(err)
	}

	cfg, err = e.DefaultConfig(ctx, contracts.AlgorithmSixFactor)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Weights.Primary != 0.5 {
		t.Errorf("stored default not used: %+v", cfg.Weights)
	}
}

func TestUseConfig(t *testing.T) {
	log := logger.NewNop()
	store := calcconfig.NewMemoryStore()
	e := New(algorithms.NewRegistry(log), store, log)
	ctx := context.Background()

	cfg := calcconfig.DefaultConfig(contracts.AlgorithmNormalized)
	version, err := store.Create(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.UseConfig(ctx, version); err != nil {
		t.Fatalf("UseConfig: %v", err)
	}
	if got := e.CurrentConfig().Version; got != version {
		t.Errorf("active version = %s, want %s", got, version)
	}

	if err := e.UseConfig(ctx, "six_factor_v0"); !errors.Is(err, calcconfig.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func historicalRaws(n int, badEvery int) []*contracts.RawBreadthRecord {
	raws := make([]*contracts.RawBreadthRecord, 0, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		date := base.AddDate(0, 0, i).Format("2006-01-02")
		if badEvery > 0 && i%badEvery == badEvery-1 {
			// Missing declining counts: fails validation.
			raws = append(raws, &contracts.RawBreadthRecord{Fields: map[string]any{
				"date":                 date,
				"stocks_up_4pct_daily": 100,
			}})
			continue
		}
		raws = append(raws, rawRecord(date, float64(100+i*10), 100))
	}
	return raws
}

func TestCalculateHistorical(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// 25 records, every 5th invalid: 5 failures, 20 successes.
	summary, err := e.CalculateHistorical(ctx, historicalRaws(25, 5), HistoricalOptions{})
	if err != nil {
		t.Fatalf("CalculateHistorical: %v", err)
	}

	if summary.Successful != 20 || summary.Failed != 5 {
		t.Errorf("successful/failed = %d/%d, want 20/5", summary.Successful, summary.Failed)
	}
	if summary.Cancelled {
		t.Error("run must not be cancelled")
	}
	if len(summary.Results) != 20 {
		t.Fatalf("results = %d, want 20", len(summary.Results))
	}

	// Results come back in ascending date order.
	for i := 1; i < len(summary.Results); i++ {
		if !summary.Results[i].Date.After(summary.Results[i-1].Date) {
			t.Fatalf("results out of order at %d", i)
		}
	}

	// The first record has no history to trend against.
	if got := summary.Results[0].MarketCondition.TrendDirection; got != contracts.TrendSideways {
		t.Errorf("first result trend = %s, want SIDEWAYS", got)
	}

	if summary.Duration <= 0 || summary.Throughput <= 0 {
		t.Errorf("duration/throughput not recorded: %v / %v", summary.Duration, summary.Throughput)
	}
}

func TestCalculateHistoricalProgressCadence(t *testing.T) {
	e := newTestEngine()

	var seen []int
	_, err := e.CalculateHistorical(context.Background(), historicalRaws(25, 0), HistoricalOptions{
		OnProgress: func(p Progress) bool {
			seen = append(seen, p.Processed)
			return true
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []int{10, 20, 25}
	if len(seen) != len(want) {
		t.Fatalf("progress calls = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress calls = %v, want %v", seen, want)
		}
	}
}

func TestCalculateHistoricalCancelledByCallback(t *testing.T) {
	e := newTestEngine()

	summary, err := e.CalculateHistorical(context.Background(), historicalRaws(30, 0), HistoricalOptions{
		OnProgress: func(p Progress) bool {
			return p.Processed < 20
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Cancelled {
		t.Error("expected cancellation")
	}
	if summary.Successful != 20 {
		t.Errorf("successful = %d, want 20 before cancellation", summary.Successful)
	}
}

func TestCalculateHistoricalContextCancelled(t *testing.T) {
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := e.CalculateHistorical(ctx, historicalRaws(10, 0), HistoricalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Cancelled {
		t.Error("expected cancellation from context")
	}
	if summary.Successful != 0 {
		t.Errorf("successful = %d, want 0", summary.Successful)
	}
}

func TestCalculateHistoricalDateBounds(t *testing.T) {
	e := newTestEngine()

	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	summary, err := e.CalculateHistorical(context.Background(), historicalRaws(20, 0), HistoricalOptions{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Successful != 4 {
		t.Errorf("successful = %d, want 4 records inside the bounds", summary.Successful)
	}
}

func TestCalculateHistoricalRangeExcludesInvalidOutside(t *testing.T) {
	e := newTestEngine()

	// An invalid record outside the requested range must be filtered out
	// before it can count as a failure.
	raws := []*contracts.RawBreadthRecord{
		{Fields: map[string]any{
			"date":                 "2020-06-01",
			"stocks_up_4pct_daily": 100,
		}},
		rawRecord("2024-03-15", 358, 115),
	}

	summary, err := e.CalculateHistorical(context.Background(), raws, HistoricalOptions{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Successful != 1 || summary.Failed != 0 {
		t.Errorf("successful/failed = %d/%d, want 1/0", summary.Successful, summary.Failed)
	}
}

func TestCalculateHistoricalSmallBatches(t *testing.T) {
	e := newTestEngine()

	var seen []int
	summary, err := e.CalculateHistorical(context.Background(), historicalRaws(25, 0), HistoricalOptions{
		BatchSize: 7,
		OnProgress: func(p Progress) bool {
			seen = append(seen, p.Processed)
			return true
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Chunking must not change the outcome or the progress cadence.
	if summary.Successful != 25 || summary.Failed != 0 {
		t.Errorf("successful/failed = %d/%d, want 25/0", summary.Successful, summary.Failed)
	}
	for i := 1; i < len(summary.Results); i++ {
		if !summary.Results[i].Date.After(summary.Results[i-1].Date) {
			t.Fatalf("results out of order at %d", i)
		}
	}
	want := []int{10, 20, 25}
	if len(seen) != len(want) {
		t.Fatalf("progress calls = %v, want %v", seen, want)
	}
}

func TestTelemetryEntryDetail(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	if _, err := e.Calculate(ctx, rawRecord("2024-01-15", 358, 115), nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CalculateHistorical(ctx, historicalRaws(25, 5), HistoricalOptions{}); err != nil {
		t.Fatal(err)
	}

	entries := e.Telemetry().Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	single := entries[0]
	if single.Records != 1 || single.Throughput <= 0 {
		t.Errorf("single entry records/throughput = %d/%v", single.Records, single.Throughput)
	}

	batch := entries[1]
	if batch.Records != 25 {
		t.Errorf("batch entry records = %d, want 25", batch.Records)
	}
	if batch.Throughput <= 0 {
		t.Errorf("batch entry throughput = %v, want > 0", batch.Throughput)
	}
	if batch.BatchSize != 100 {
		t.Errorf("batch entry batch size = %d, want default 100", batch.BatchSize)
	}
}

type sliceProvider struct {
	raws []*contracts.RawBreadthRecord
	err  error
}

func (p *sliceProvider) FetchRange(_ context.Context, from, to time.Time) ([]*contracts.RawBreadthRecord, error) {
	return p.raws, p.err
}

func TestCalculateHistoricalFrom(t *testing.T) {
	e := newTestEngine()

	summary, err := e.CalculateHistoricalFrom(context.Background(), &sliceProvider{raws: historicalRaws(10, 0)}, HistoricalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Successful != 10 {
		t.Errorf("successful = %d, want 10", summary.Successful)
	}

	_, err = e.CalculateHistoricalFrom(context.Background(), &sliceProvider{err: fmt.Errorf("connection refused")}, HistoricalOptions{})
	if err == nil {
		t.Error("provider failure must abort the run")
	}
}

func TestTelemetryRingEviction(t *testing.T) {
	tel := NewTelemetry()

	for i := 0; i < 105; i++ {
		tel.Record(TelemetryEntry{BatchSize: i, Duration: time.Duration(i)})
	}

	if tel.Len() != 100 {
		t.Fatalf("len = %d, want 100", tel.Len())
	}

	entries := tel.Entries()
	if entries[0].BatchSize != 5 {
		t.Errorf("oldest retained entry = %d, want 5", entries[0].BatchSize)
	}
	if entries[len(entries)-1].BatchSize != 104 {
		t.Errorf("newest entry = %d, want 104", entries[len(entries)-1].BatchSize)
	}

	tel.Clear()
	if tel.Len() != 0 {
		t.Error("Clear must drop all entries")
	}
}
