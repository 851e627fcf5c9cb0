package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/internal/records"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

// LatestReader reads the most recent stored result for an algorithm.
type LatestReader interface {
	Latest(ctx context.Context, algorithm contracts.AlgorithmType) (*contracts.BreadthResult, error)
}

// CacheRefreshJob keeps the latest-result cache warm so the cache TTL never
// forces an API request onto the database.
type CacheRefreshJob struct {
	engine   *engine.Engine
	results  LatestReader
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewCacheRefreshJob creates a new cache refresh job.
func NewCacheRefreshJob(eng *engine.Engine, results LatestReader, cache *redis.Cache, cacheTTL time.Duration, log *logger.Logger) *CacheRefreshJob {
	return &CacheRefreshJob{
		engine:   eng,
		results:  results,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// Name returns the job name
func (j *CacheRefreshJob) Name() string {
	return "result_cache_refresh"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheRefreshJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run refreshes the cached latest result for the active algorithm
func (j *CacheRefreshJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}

	alg := j.engine.CurrentConfig().Algorithm

	latest, err := j.results.Latest(ctx, alg)
	if errors.Is(err, records.ErrNotFound) {
		return nil // nothing scored yet
	}
	if err != nil {
		return err
	}

	key := redis.LatestResultKey(string(alg))
	if err := j.cache.Set(ctx, key, latest, j.cacheTTL); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"algorithm": alg,
		"date":      latest.Date.Format("2006-01-02"),
	}).Debug("Refreshed latest-result cache")

	return nil
}
