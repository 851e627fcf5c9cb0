package commands

import (
	"context"
	"fmt"

	"github.com/wonny/breadthcore/internal/algorithms"
	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/internal/records"
	"github.com/wonny/breadthcore/pkg/config"
	"github.com/wonny/breadthcore/pkg/database"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

// app bundles the dependencies every command wires the same way.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	store   calcconfig.Store
	engine  *engine.Engine
	records *records.Repository
	results *records.ResultRepository
	cache   *redis.Cache
	limiter *redis.RateLimiter
}

// newApp loads config and connects the full stack: database, Redis (when
// enabled), config store, and the scoring engine on the configured default
// algorithm.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	store := calcconfig.NewPostgresStore(db.Pool)
	eng := engine.New(algorithms.NewRegistry(log), store, log.Component("engine"))

	defaultAlg := contracts.AlgorithmType(cfg.Scoring.DefaultAlgorithm)
	if defaultAlg != contracts.AlgorithmSixFactor {
		if err := eng.SwitchAlgorithm(ctx, defaultAlg); err != nil {
			db.Close()
			redisClient.Close()
			return nil, fmt.Errorf("activate default algorithm: %w", err)
		}
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		redis:   redisClient,
		store:   store,
		engine:  eng,
		records: records.NewRepository(db.Pool),
		results: records.NewResultRepository(db.Pool),
	}
	if redisClient.Enabled() {
		a.cache = redis.NewCache(redisClient, "breadth")
		a.limiter = redis.NewRateLimiter(redisClient, "breadth")
	}
	return a, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
