package calcconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/breadthcore/internal/contracts"
)

// PostgresStore persists versioned configs in the breadth.scoring_configs
// table. It is the durable Store used when a database is attached; the
// engine itself works equally with MemoryStore or no store at all.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a Postgres-backed config store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

const configColumns = `
	version, algorithm, name,
	weight_primary, weight_secondary, weight_reference, weight_sector_data,
	min_score, max_score, normalization, confidence_threshold,
	t2108_threshold, sector_count_threshold, volatility_adjustment, lookback_days,
	strong_bear_threshold, bear_threshold, bull_threshold, strong_bull_threshold,
	trend_strength_multiplier,
	custom_formula, custom_parameters,
	is_active, is_default, created_at, updated_at`

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, cfg *contracts.CalculationConfig) (string, error) {
	if err := Validate(cfg); err != nil {
		return "", err
	}

	now := s.now()
	stored := cfg.Clone()
	stored.Version = newVersion(cfg.Algorithm, now)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.IsActive = true

	params, err := json.Marshal(stored.CustomParameters)
	if err != nil {
		return "", fmt.Errorf("marshal custom parameters: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if stored.IsDefault {
		if err := clearDefault(ctx, tx, stored.Algorithm); err != nil {
			return "", err
		}
	}

	query := `
		INSERT INTO breadth.scoring_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`
	_, err = tx.Exec(ctx, query,
		stored.Version, string(stored.Algorithm), stored.Name,
		stored.Weights.Primary, stored.Weights.Secondary, stored.Weights.Reference, stored.Weights.SectorData,
		stored.Scaling.MinScore, stored.Scaling.MaxScore, stored.Scaling.Normalization, stored.Scaling.ConfidenceThreshold,
		stored.Indicators.T2108Threshold, stored.Indicators.SectorCountThreshold, stored.Indicators.VolatilityAdjustment, stored.Indicators.LookbackDays,
		stored.MarketConditions.StrongBear, stored.MarketConditions.Bear, stored.MarketConditions.Bull, stored.MarketConditions.StrongBull,
		stored.MarketConditions.TrendStrengthMultiplier,
		stored.CustomFormula, params,
		stored.IsActive, stored.IsDefault, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert config: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return stored.Version, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, version string) (*contracts.CalculationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM breadth.scoring_configs WHERE version = $1`
	cfg, err := scanConfig(s.pool.QueryRow(ctx, query, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get config %s: %w", version, err)
	}
	return cfg, nil
}

// Update implements Store: read, clone, edit, insert as a new version.
func (s *PostgresStore) Update(ctx context.Context, version string, apply func(*contracts.CalculationConfig)) (string, error) {
	base, err := s.Get(ctx, version)
	if err != nil {
		return "", err
	}

	edited := base.Clone()
	apply(edited)
	edited.Algorithm = base.Algorithm
	edited.IsDefault = false

	return s.Create(ctx, edited)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, version string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM breadth.scoring_configs WHERE version = $1`, version)
	if err != nil {
		return fmt.Errorf("delete config %s: %w", version, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*contracts.CalculationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM breadth.scoring_configs`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC, version DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	var configs []*contracts.CalculationConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SetDefault implements Store.
func (s *PostgresStore) SetDefault(ctx context.Context, version string) error {
	cfg, err := s.Get(ctx, version)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := clearDefault(ctx, tx, cfg.Algorithm); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE breadth.scoring_configs SET is_default = TRUE WHERE version = $1`, version); err != nil {
		return fmt.Errorf("set default %s: %w", version, err)
	}

	return tx.Commit(ctx)
}

// GetDefault implements Store.
func (s *PostgresStore) GetDefault(ctx context.Context, algorithm contracts.AlgorithmType) (*contracts.CalculationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM breadth.scoring_configs WHERE algorithm = $1 AND is_default`
	cfg, err := scanConfig(s.pool.QueryRow(ctx, query, string(algorithm)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get default for %s: %w", algorithm, err)
	}
	return cfg, nil
}

func clearDefault(ctx context.Context, tx pgx.Tx, algorithm contracts.AlgorithmType) error {
	if _, err := tx.Exec(ctx,
		`UPDATE breadth.scoring_configs SET is_default = FALSE WHERE algorithm = $1 AND is_default`,
		string(algorithm)); err != nil {
		return fmt.Errorf("clear default for %s: %w", algorithm, err)
	}
	return nil
}

func scanConfig(row pgx.Row) (*contracts.CalculationConfig, error) {
	var (
		cfg       contracts.CalculationConfig
		algorithm string
		params    []byte
	)
	err := row.Scan(
		&cfg.Version, &algorithm, &cfg.Name,
		&cfg.Weights.Primary, &cfg.Weights.Secondary, &cfg.Weights.Reference, &cfg.Weights.SectorData,
		&cfg.Scaling.MinScore, &cfg.Scaling.MaxScore, &cfg.Scaling.Normalization, &cfg.Scaling.ConfidenceThreshold,
		&cfg.Indicators.T2108Threshold, &cfg.Indicators.SectorCountThreshold, &cfg.Indicators.VolatilityAdjustment, &cfg.Indicators.LookbackDays,
		&cfg.MarketConditions.StrongBear, &cfg.MarketConditions.Bear, &cfg.MarketConditions.Bull, &cfg.MarketConditions.StrongBull,
		&cfg.MarketConditions.TrendStrengthMultiplier,
		&cfg.CustomFormula, &params,
		&cfg.IsActive, &cfg.IsDefault, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Algorithm = contracts.AlgorithmType(algorithm)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &cfg.CustomParameters); err != nil {
			return nil, fmt.Errorf("unmarshal custom parameters: %w", err)
		}
	}
	return &cfg, nil
}

var _ Store = (*PostgresStore)(nil)
