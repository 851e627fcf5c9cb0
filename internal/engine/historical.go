package engine

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/breadthcore/internal/algorithms"
	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/normalize"
)

// progressEvery is the record cadence for progress callbacks.
const progressEvery = 10

// Progress is a snapshot of a running historical calculation.
type Progress struct {
	Processed   int       `json:"processed"`
	Total       int       `json:"total"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	CurrentDate time.Time `json:"current_date"`
}

// HistoricalOptions tunes a batch run. The zero value scores every record
// with the engine's active config.
type HistoricalOptions struct {
	// StartDate / EndDate bound the records by date when non-zero.
	StartDate time.Time
	EndDate   time.Time

	// Config overrides the active config when non-nil.
	Config *contracts.CalculationConfig

	// BatchSize chunks the run; defaults to 100.
	BatchSize int

	// OnProgress is invoked every 10 processed records and once at the
	// end. Returning false cancels the run.
	OnProgress func(Progress) bool
}

// HistoricalSummary is the outcome of a batch run. One record's failure
// never aborts the batch; it is counted and skipped.
type HistoricalSummary struct {
	Results    []*contracts.BreadthResult `json:"results"`
	Successful int                        `json:"successful"`
	Failed     int                        `json:"failed"`
	Cancelled  bool                       `json:"cancelled"`
	Duration   time.Duration              `json:"duration"`
	Throughput float64                    `json:"throughput"` // records per second
}

// CalculateHistorical scores a series of raw records in date order. Each
// record sees only strictly earlier records as its history, so re-scoring a
// stored range reproduces the original run.
func (e *Engine) CalculateHistorical(ctx context.Context, raws []*contracts.RawBreadthRecord, opts HistoricalOptions) (*HistoricalSummary, error) {
	started := time.Now()
	memBefore := heapAlloc()

	cfg := opts.Config
	if cfg == nil {
		cfg = e.CurrentConfig()
	} else if err := calcconfig.Validate(cfg); err != nil {
		return nil, err
	}

	alg, err := e.registry.Get(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	summary := &HistoricalSummary{}

	// Resolve dates and range-filter before validating, so garbage outside
	// the requested range never inflates the failure count. A record whose
	// date cannot resolve at all is a failure regardless of range.
	records := make([]*contracts.StandardizedBreadthRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := normalize.Standardize(raw)
		if err != nil {
			summary.Failed++
			e.logger.WithError(err).Warn("Skipping record: normalization failed")
			continue
		}
		if !opts.StartDate.IsZero() && rec.Date.Before(opts.StartDate) {
			continue
		}
		if !opts.EndDate.IsZero() && rec.Date.After(opts.EndDate) {
			continue
		}
		if v := alg.Validate(raw); !v.Valid {
			summary.Failed++
			e.logger.WithError(algorithms.ValidationError{Reasons: v.Errors}).Warn("Skipping record: validation failed")
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	total := len(records)
	window := &contracts.HistoricalWindow{}

batches:
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				summary.Cancelled = true
				break batches
			}

			rec := records[i]

			// History is everything strictly before this record.
			window.Records = records[:i]

			result, err := alg.Calculate(rec, cfg, window)
			if err != nil {
				summary.Failed++
				e.logger.WithError(err).WithField("date", rec.Date.Format("2006-01-02")).Warn("Skipping record: calculation failed")
			} else {
				summary.Successful++
				summary.Results = append(summary.Results, result)
				window.Results = summary.Results
			}

			processed := i + 1
			if opts.OnProgress != nil && (processed%progressEvery == 0 || processed == total) {
				cont := opts.OnProgress(Progress{
					Processed:   processed,
					Total:       total,
					Successful:  summary.Successful,
					Failed:      summary.Failed,
					CurrentDate: rec.Date,
				})
				if !cont {
					summary.Cancelled = true
					break batches
				}
			}
		}
	}

	summary.Duration = time.Since(started)
	if secs := summary.Duration.Seconds(); secs > 0 {
		summary.Throughput = float64(summary.Successful+summary.Failed) / secs
	}

	e.recordTelemetry(TelemetryEntry{
		Algorithm:   cfg.Algorithm,
		Duration:    summary.Duration,
		BatchSize:   batchSize,
		Records:     summary.Successful + summary.Failed,
		MemoryDelta: heapAlloc() - memBefore,
		Success:     !summary.Cancelled,
	})

	e.logger.WithFields(map[string]interface{}{
		"algorithm":  cfg.Algorithm,
		"total":      total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"cancelled":  summary.Cancelled,
		"duration":   summary.Duration.String(),
	}).Info("Historical calculation finished")

	return summary, nil
}

// CalculateHistoricalFrom fetches the records for the option range from a
// provider and scores them. Provider failures abort before any scoring.
func (e *Engine) CalculateHistoricalFrom(ctx context.Context, provider contracts.RecordProvider, opts HistoricalOptions) (*HistoricalSummary, error) {
	raws, err := provider.FetchRange(ctx, opts.StartDate, opts.EndDate)
	if err != nil {
		return nil, err
	}
	return e.CalculateHistorical(ctx, raws, opts)
}
