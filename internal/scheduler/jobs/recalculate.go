package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

// ResultWriter persists a batch of scoring results.
type ResultWriter interface {
	SaveBatch(ctx context.Context, results []*contracts.BreadthResult) error
}

// RecalcJob re-scores the trailing window of stored records every night.
// Late data corrections and config changes both land in stored results this
// way without manual backfills.
type RecalcJob struct {
	engine     *engine.Engine
	records    contracts.RecordProvider
	results    ResultWriter
	cache      *redis.Cache
	schedule   string
	windowDays int
	cacheTTL   time.Duration
	logger     *logger.Logger
}

// NewRecalcJob creates a new recalculation job. cache may be nil when Redis
// is disabled.
func NewRecalcJob(
	eng *engine.Engine,
	records contracts.RecordProvider,
	results ResultWriter,
	cache *redis.Cache,
	schedule string,
	windowDays int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *RecalcJob {
	return &RecalcJob{
		engine:     eng,
		records:    records,
		results:    results,
		cache:      cache,
		schedule:   schedule,
		windowDays: windowDays,
		cacheTTL:   cacheTTL,
		logger:     log,
	}
}

// Name returns the job name
func (j *RecalcJob) Name() string {
	return "nightly_recalculation"
}

// Schedule returns the cron schedule from configuration
func (j *RecalcJob) Schedule() string {
	return j.schedule
}

// Run executes the recalculation
func (j *RecalcJob) Run(ctx context.Context) error {
	start := time.Now().AddDate(0, 0, -j.windowDays)

	j.logger.WithFields(map[string]interface{}{
		"window_days": j.windowDays,
		"start_date":  start.Format("2006-01-02"),
	}).Info("Starting nightly recalculation")

	summary, err := j.engine.CalculateHistoricalFrom(ctx, j.records, engine.HistoricalOptions{
		StartDate: start,
	})
	if err != nil {
		return fmt.Errorf("recalculation failed: %w", err)
	}

	if len(summary.Results) > 0 {
		if err := j.results.SaveBatch(ctx, summary.Results); err != nil {
			return fmt.Errorf("persist recalculated results: %w", err)
		}
		j.refreshCache(ctx, summary.Results[len(summary.Results)-1])
	}

	j.logger.WithFields(map[string]interface{}{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"duration":   summary.Duration,
	}).Info("Nightly recalculation completed")

	return nil
}

// refreshCache updates the latest-result cache after a recalculation so API
// reads see the fresh score immediately.
func (j *RecalcJob) refreshCache(ctx context.Context, latest *contracts.BreadthResult) {
	if j.cache == nil {
		return
	}
	key := redis.LatestResultKey(string(latest.Metadata.AlgorithmUsed))
	if err := j.cache.Set(ctx, key, latest, j.cacheTTL); err != nil {
		j.logger.WithError(err).Warn("Failed to refresh latest-result cache")
	}
}
