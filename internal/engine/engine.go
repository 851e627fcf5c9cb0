// Package engine orchestrates breadth scoring: it resolves the active
// configuration, validates and normalizes raw records, dispatches to the
// registered algorithm, and records telemetry.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/wonny/breadthcore/internal/algorithms"
	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/normalize"
	"github.com/wonny/breadthcore/pkg/logger"
)

// Engine is the scoring entry point. One engine serves concurrent callers;
// the active config is swapped atomically by SwitchAlgorithm.
type Engine struct {
	registry  *algorithms.Registry
	store     calcconfig.Store // optional; nil means builtin defaults only
	telemetry *Telemetry
	logger    *logger.Logger

	mu      sync.RWMutex
	current *contracts.CalculationConfig
}

// New creates an engine starting on the builtin six-factor default. store
// may be nil; the engine then serves builtin defaults only.
func New(registry *algorithms.Registry, store calcconfig.Store, log *logger.Logger) *Engine {
	return &Engine{
		registry:  registry,
		store:     store,
		telemetry: NewTelemetry(),
		logger:    log,
		current:   calcconfig.DefaultConfig(contracts.AlgorithmSixFactor),
	}
}

// Telemetry exposes the performance ring buffer.
func (e *Engine) Telemetry() *Telemetry {
	return e.telemetry
}

// Registry exposes the algorithm registry.
func (e *Engine) Registry() *algorithms.Registry {
	return e.registry
}

// CurrentConfig returns a copy of the active configuration.
func (e *Engine) CurrentConfig() *contracts.CalculationConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current.Clone()
}

// DefaultConfig resolves the default for an algorithm type: the store's
// marked default when one exists, the builtin otherwise.
func (e *Engine) DefaultConfig(ctx context.Context, t contracts.AlgorithmType) (*contracts.CalculationConfig, error) {
	if e.store != nil {
		cfg, err := e.store.GetDefault(ctx, t)
		if err == nil {
			return cfg, nil
		}
		if err != calcconfig.ErrNotFound {
			return nil, err
		}
	}
	cfg := calcconfig.DefaultConfig(t)
	if cfg == nil {
		return nil, algorithms.UnknownAlgorithmError{Algorithm: t}
	}
	return cfg, nil
}

// SwitchAlgorithm activates an algorithm with its default configuration.
// Overrides are applied on top of the default before validation; a failed
// validation leaves the previous config active.
func (e *Engine) SwitchAlgorithm(ctx context.Context, t contracts.AlgorithmType, overrides ...func(*contracts.CalculationConfig)) error {
	if _, err := e.registry.Get(t); err != nil {
		return err
	}

	cfg, err := e.DefaultConfig(ctx, t)
	if err != nil {
		return err
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	cfg.Algorithm = t

	if err := calcconfig.Validate(cfg); err != nil {
		return fmt.Errorf("switch to %s rejected: %w", t, err)
	}

	e.mu.Lock()
	e.current = cfg
	e.mu.Unlock()

	e.logger.WithFields(map[string]interface{}{
		"algorithm": t,
		"version":   cfg.Version,
	}).Info("Switched scoring algorithm")

	return nil
}

// UseConfig activates a specific stored config version.
func (e *Engine) UseConfig(ctx context.Context, version string) error {
	if e.store == nil {
		return calcconfig.ErrNotFound
	}
	cfg, err := e.store.Get(ctx, version)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.current = cfg
	e.mu.Unlock()
	return nil
}

// Calculate scores one raw record. cfg overrides the active config when
// non-nil; window may be nil for a standalone calculation.
func (e *Engine) Calculate(ctx context.Context, raw *contracts.RawBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error) {
	started := time.Now()
	memBefore := heapAlloc()

	if cfg == nil {
		cfg = e.CurrentConfig()
	} else if err := calcconfig.Validate(cfg); err != nil {
		return nil, err
	}

	alg, err := e.registry.Get(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	validation := alg.Validate(raw)
	if !validation.Valid {
		e.recordTelemetry(TelemetryEntry{
			Algorithm:   cfg.Algorithm,
			Duration:    time.Since(started),
			Records:     1,
			MemoryDelta: heapAlloc() - memBefore,
		})
		return nil, algorithms.ValidationError{Reasons: validation.Errors}
	}

	rec, err := normalize.Standardize(raw)
	if err != nil {
		e.recordTelemetry(TelemetryEntry{
			Algorithm:   cfg.Algorithm,
			Duration:    time.Since(started),
			Records:     1,
			MemoryDelta: heapAlloc() - memBefore,
		})
		return nil, err
	}

	result, err := alg.Calculate(rec, cfg, window)
	if err != nil {
		e.recordTelemetry(TelemetryEntry{
			Algorithm:   cfg.Algorithm,
			Duration:    time.Since(started),
			RecordDate:  rec.Date,
			Records:     1,
			MemoryDelta: heapAlloc() - memBefore,
		})
		return nil, err
	}

	result.Metadata.CalculationTime = time.Since(started)
	result.Metadata.Warnings = append(result.Metadata.Warnings, validation.Warnings...)

	e.recordTelemetry(TelemetryEntry{
		Algorithm:   cfg.Algorithm,
		Duration:    result.Metadata.CalculationTime,
		RecordDate:  rec.Date,
		Records:     1,
		MemoryDelta: heapAlloc() - memBefore,
		Success:     true,
	})

	e.logger.WithFields(map[string]interface{}{
		"date":       rec.Date.Format("2006-01-02"),
		"algorithm":  cfg.Algorithm,
		"score":      result.NormalizedScore,
		"phase":      result.MarketCondition.Phase,
		"confidence": result.Confidence,
	}).Debug("Calculated breadth score")

	return result, nil
}

func (e *Engine) recordTelemetry(entry TelemetryEntry) {
	entry.Timestamp = time.Now()
	if entry.Records > 0 {
		if secs := entry.Duration.Seconds(); secs > 0 {
			entry.Throughput = float64(entry.Records) / secs
		}
	}
	e.telemetry.Record(entry)
}

// heapAlloc samples the current heap allocation for the approximate
// memory-delta telemetry field.
func heapAlloc() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapAlloc)
}
