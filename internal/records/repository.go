// Package records reads the imported breadth measurements from Postgres and
// persists scoring results. The daily table keeps the importer's layout, so
// rows feed the engine as raw records and go through the same normalization
// as any other source.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/breadthcore/internal/contracts"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("breadth record not found")

// Repository reads daily breadth rows. Implements contracts.RecordProvider.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository over the daily breadth table.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `
	date,
	stocks_up_4pct_daily, stocks_down_4pct_daily,
	ratio_5day, ratio_10day,
	stocks_up_25pct_quarterly, stocks_down_25pct_quarterly,
	stocks_up_25pct_monthly, stocks_down_25pct_monthly,
	stocks_up_50pct_monthly, stocks_down_50pct_monthly,
	stocks_up_13pct_34days, stocks_down_13pct_34days,
	t2108, worden_common_stocks, sp_reference,
	basic_materials_sector, communication_services_sector, consumer_cyclical_sector,
	consumer_defensive_sector, energy_sector, financial_services_sector,
	healthcare_sector, industrials_sector, real_estate_sector,
	technology_sector, utilities_sector,
	source, import_format`

// FetchRange implements contracts.RecordProvider. Zero bounds are open ends.
func (r *Repository) FetchRange(ctx context.Context, from, to time.Time) ([]*contracts.RawBreadthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM breadth.market_breadth_daily
		WHERE ($1::date IS NULL OR date >= $1)
		  AND ($2::date IS NULL OR date <= $2)
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query breadth records: %w", err)
	}
	defer rows.Close()

	var out []*contracts.RawBreadthRecord
	for rows.Next() {
		raw, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// FetchDate returns the row for one trading day.
func (r *Repository) FetchDate(ctx context.Context, date time.Time) (*contracts.RawBreadthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM breadth.market_breadth_daily
		WHERE date = $1
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query breadth record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanRecord(rows)
}

// LatestDate returns the most recent trading day on file.
func (r *Repository) LatestDate(ctx context.Context) (time.Time, error) {
	// MAX over an empty table is NULL, hence the pointer scan.
	var date *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(date) FROM breadth.market_breadth_daily`).Scan(&date)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest date: %w", err)
	}
	if date == nil {
		return time.Time{}, ErrNotFound
	}
	return *date, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// scanRecord builds a raw record from one row. Null columns stay out of the
// field map, so the normalizer's missing-field accounting sees them exactly
// like a sparse import.
func scanRecord(rows pgx.Rows) (*contracts.RawBreadthRecord, error) {
	var (
		date    time.Time
		core    = make([]*float64, len(contracts.CoreFields))
		sectors = make([]*float64, len(contracts.SectorFields))
		source  *string
		format  *string
	)

	dest := make([]any, 0, 1+len(core)+len(sectors)+2)
	dest = append(dest, &date)
	for i := range core {
		dest = append(dest, &core[i])
	}
	for i := range sectors {
		dest = append(dest, &sectors[i])
	}
	dest = append(dest, &source, &format)

	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan breadth record: %w", err)
	}

	fields := map[string]any{
		"date": date.Format("2006-01-02"),
	}
	for i, name := range contracts.CoreFields {
		if core[i] != nil {
			fields[name] = *core[i]
		}
	}
	for i, name := range contracts.SectorFields {
		if sectors[i] != nil {
			fields[name] = *sectors[i]
		}
	}

	raw := &contracts.RawBreadthRecord{Fields: fields}
	if source != nil {
		raw.Source = *source
	}
	if format != nil {
		raw.ImportFormat = *format
	}
	return raw, nil
}

var _ contracts.RecordProvider = (*Repository)(nil)
