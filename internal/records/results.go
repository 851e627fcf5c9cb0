package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/breadthcore/internal/contracts"
)

// ResultRepository persists scoring results. One row per (date, algorithm,
// config version); re-scoring a day under the same config overwrites it.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a result repository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `
	date, algorithm, config_version,
	score, normalized_score, confidence,
	component_primary, component_secondary, component_reference, component_sector,
	phase, strength, trend_direction, confidence_level,
	data_quality, missing_indicators, warnings,
	calculation_time_us, created_at`

// execer abstracts pool vs transaction for writes.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Save upserts one result.
func (r *ResultRepository) Save(ctx context.Context, result *contracts.BreadthResult) error {
	return save(ctx, r.pool, result)
}

func save(ctx context.Context, db execer, result *contracts.BreadthResult) error {
	missing, err := json.Marshal(result.Metadata.MissingIndicators)
	if err != nil {
		return fmt.Errorf("marshal missing indicators: %w", err)
	}
	warnings, err := json.Marshal(result.Metadata.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	query := `
		INSERT INTO breadth.scoring_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (date, algorithm, config_version) DO UPDATE SET
			score = EXCLUDED.score,
			normalized_score = EXCLUDED.normalized_score,
			confidence = EXCLUDED.confidence,
			component_primary = EXCLUDED.component_primary,
			component_secondary = EXCLUDED.component_secondary,
			component_reference = EXCLUDED.component_reference,
			component_sector = EXCLUDED.component_sector,
			phase = EXCLUDED.phase,
			strength = EXCLUDED.strength,
			trend_direction = EXCLUDED.trend_direction,
			confidence_level = EXCLUDED.confidence_level,
			data_quality = EXCLUDED.data_quality,
			missing_indicators = EXCLUDED.missing_indicators,
			warnings = EXCLUDED.warnings,
			calculation_time_us = EXCLUDED.calculation_time_us,
			created_at = NOW()
	`
	_, err = db.Exec(ctx, query,
		result.Date, string(result.Metadata.AlgorithmUsed), result.Metadata.ConfigVersion,
		result.Score, result.NormalizedScore, result.Confidence,
		result.Components.Primary, result.Components.Secondary, result.Components.Reference, result.Components.Sector,
		string(result.MarketCondition.Phase), string(result.MarketCondition.Strength),
		string(result.MarketCondition.TrendDirection), result.MarketCondition.ConfidenceLevel,
		result.Metadata.DataQuality, missing, warnings,
		result.Metadata.CalculationTime.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// SaveBatch persists a batch of results in one transaction.
func (r *ResultRepository) SaveBatch(ctx context.Context, results []*contracts.BreadthResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, result := range results {
		if err := save(ctx, tx, result); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Latest returns the most recent result for an algorithm.
func (r *ResultRepository) Latest(ctx context.Context, algorithm contracts.AlgorithmType) (*contracts.BreadthResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM breadth.scoring_results
		WHERE algorithm = $1
		ORDER BY date DESC
		LIMIT 1
	`
	rows, err := r.pool.Query(ctx, query, string(algorithm))
	if err != nil {
		return nil, fmt.Errorf("query latest result: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanResult(rows)
}

// Range returns results for an algorithm between two dates, ascending.
func (r *ResultRepository) Range(ctx context.Context, algorithm contracts.AlgorithmType, from, to time.Time) ([]*contracts.BreadthResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM breadth.scoring_results
		WHERE algorithm = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`
	rows, err := r.pool.Query(ctx, query, string(algorithm), nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query result range: %w", err)
	}
	defer rows.Close()

	var out []*contracts.BreadthResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

func scanResult(rows pgx.Rows) (*contracts.BreadthResult, error) {
	var (
		result    contracts.BreadthResult
		algorithm string
		phase     string
		strength  string
		trend     string
		missing   []byte
		warnings  []byte
		calcUS    int64
		createdAt time.Time
	)

	err := rows.Scan(
		&result.Date, &algorithm, &result.Metadata.ConfigVersion,
		&result.Score, &result.NormalizedScore, &result.Confidence,
		&result.Components.Primary, &result.Components.Secondary,
		&result.Components.Reference, &result.Components.Sector,
		&phase, &strength, &trend, &result.MarketCondition.ConfidenceLevel,
		&result.Metadata.DataQuality, &missing, &warnings,
		&calcUS, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}

	result.Metadata.AlgorithmUsed = contracts.AlgorithmType(algorithm)
	result.MarketCondition.Phase = contracts.MarketPhase(phase)
	result.MarketCondition.Strength = contracts.TrendStrength(strength)
	result.MarketCondition.TrendDirection = contracts.TrendDirection(trend)
	result.Metadata.CalculationTime = time.Duration(calcUS) * time.Microsecond

	if len(missing) > 0 {
		if err := json.Unmarshal(missing, &result.Metadata.MissingIndicators); err != nil {
			return nil, fmt.Errorf("unmarshal missing indicators: %w", err)
		}
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &result.Metadata.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}

	return &result, nil
}
