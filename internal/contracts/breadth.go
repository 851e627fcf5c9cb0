package contracts

import "time"

// Canonical breadth field names. Every legacy or alternate column name the
// importers ever produced resolves to one of these.
const (
	FieldStocksUp4PctDaily        = "stocks_up_4pct_daily"
	FieldStocksDown4PctDaily      = "stocks_down_4pct_daily"
	FieldRatio5Day                = "ratio_5day"
	FieldRatio10Day               = "ratio_10day"
	FieldStocksUp25PctQuarterly   = "stocks_up_25pct_quarterly"
	FieldStocksDown25PctQuarterly = "stocks_down_25pct_quarterly"
	FieldStocksUp25PctMonthly     = "stocks_up_25pct_monthly"
	FieldStocksDown25PctMonthly   = "stocks_down_25pct_monthly"
	FieldStocksUp50PctMonthly     = "stocks_up_50pct_monthly"
	FieldStocksDown50PctMonthly   = "stocks_down_50pct_monthly"
	FieldStocksUp13Pct34Days      = "stocks_up_13pct_34days"
	FieldStocksDown13Pct34Days    = "stocks_down_13pct_34days"
	FieldT2108                    = "t2108"
	FieldWordenCommonStocks       = "worden_common_stocks"
	FieldSPReference              = "sp_reference"
)

// CoreFields lists the canonical fields counted toward the data-quality
// score, in reporting order. The date key is required separately and is not
// part of this list.
var CoreFields = []string{
	FieldStocksUp4PctDaily,
	FieldStocksDown4PctDaily,
	FieldRatio5Day,
	FieldRatio10Day,
	FieldStocksUp25PctQuarterly,
	FieldStocksDown25PctQuarterly,
	FieldStocksUp25PctMonthly,
	FieldStocksDown25PctMonthly,
	FieldStocksUp50PctMonthly,
	FieldStocksDown50PctMonthly,
	FieldStocksUp13Pct34Days,
	FieldStocksDown13Pct34Days,
	FieldT2108,
	FieldWordenCommonStocks,
	FieldSPReference,
}

// SectorFields lists the 11 canonical sector breakdown keys.
var SectorFields = []string{
	"basic_materials",
	"communication_services",
	"consumer_cyclical",
	"consumer_defensive",
	"energy",
	"financial_services",
	"healthcare",
	"industrials",
	"real_estate",
	"technology",
	"utilities",
}

// RawBreadthRecord is one day's breadth snapshot exactly as the ingestion
// collaborator produced it: column names vary by source era, values may be
// numbers or formatted strings. Immutable once produced; a corrected record
// for the same date supersedes it upstream.
type RawBreadthRecord struct {
	Fields       map[string]any `json:"fields"`
	Source       string         `json:"source,omitempty"`
	ImportFormat string         `json:"import_format,omitempty"`
	QualityHint  *float64       `json:"quality_hint,omitempty"`
}

// StandardizedBreadthRecord is the canonical projection of a raw record.
// Derived on demand, never persisted.
type StandardizedBreadthRecord struct {
	Date time.Time `json:"date"`

	// Values holds the canonical core fields that resolved to a numeric
	// value. Absent fields are listed in MissingFields instead.
	Values map[string]float64 `json:"values"`

	// Sectors always carries all 11 canonical sector keys; sectors absent
	// from the raw record are filled with 0.
	Sectors       map[string]float64 `json:"sectors"`
	HasSectorData bool               `json:"has_sector_data"`

	DataQuality   float64  `json:"data_quality"` // 0..100
	MissingFields []string `json:"missing_fields"`

	Source       string `json:"source,omitempty"`
	ImportFormat string `json:"import_format,omitempty"`
}

// Has reports whether a canonical core field resolved to a value.
func (r *StandardizedBreadthRecord) Has(field string) bool {
	_, ok := r.Values[field]
	return ok
}

// Get returns a canonical core field value and whether it was present.
func (r *StandardizedBreadthRecord) Get(field string) (float64, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// Value returns a canonical core field value, or 0 when absent.
func (r *StandardizedBreadthRecord) Value(field string) float64 {
	return r.Values[field]
}

// NonZeroSectors counts sectors with a non-zero breakdown value.
func (r *StandardizedBreadthRecord) NonZeroSectors() int {
	n := 0
	for _, v := range r.Sectors {
		if v != 0 {
			n++
		}
	}
	return n
}
