package contracts

import (
	"context"
	"time"
)

// MarketPhase is the coarse market classification.
type MarketPhase string

const (
	PhaseStrongBull MarketPhase = "STRONG_BULL"
	PhaseBull       MarketPhase = "BULL"
	PhaseNeutral    MarketPhase = "NEUTRAL"
	PhaseBear       MarketPhase = "BEAR"
	PhaseStrongBear MarketPhase = "STRONG_BEAR"
	PhaseTransition MarketPhase = "TRANSITION"
)

// TrendStrength grades how far the score sits from the nearest threshold.
type TrendStrength string

const (
	StrengthWeak     TrendStrength = "WEAK"
	StrengthModerate TrendStrength = "MODERATE"
	StrengthStrong   TrendStrength = "STRONG"
	StrengthExtreme  TrendStrength = "EXTREME"
)

// TrendDirection is the score delta against the most recent prior result.
type TrendDirection string

const (
	TrendUp       TrendDirection = "UP"
	TrendDown     TrendDirection = "DOWN"
	TrendSideways TrendDirection = "SIDEWAYS"
)

// Components carries the per-category scores on a 0-100 scale (50 neutral).
type Components struct {
	Primary   float64 `json:"primary"`
	Secondary float64 `json:"secondary"`
	Reference float64 `json:"reference"`
	Sector    float64 `json:"sector"`
}

// MarketCondition is the classified state derived from the normalized score.
type MarketCondition struct {
	Phase           MarketPhase    `json:"phase"`
	Strength        TrendStrength  `json:"strength"`
	TrendDirection  TrendDirection `json:"trend_direction"`
	ConfidenceLevel float64        `json:"confidence_level"`
}

// ResultMetadata records how a result was produced.
type ResultMetadata struct {
	AlgorithmUsed     AlgorithmType `json:"algorithm_used"`
	ConfigVersion     string        `json:"config_version"`
	CalculationTime   time.Duration `json:"calculation_time"`
	DataQuality       float64       `json:"data_quality"`
	MissingIndicators []string      `json:"missing_indicators"`
	Warnings          []string      `json:"warnings,omitempty"`
}

// BreadthResult is one scoring invocation's output. Ownership passes to the
// caller; persistence and display are external concerns.
type BreadthResult struct {
	Date            time.Time       `json:"date"`
	Score           float64         `json:"score"`
	NormalizedScore float64         `json:"normalized_score"`
	Confidence      float64         `json:"confidence"`
	Components      Components      `json:"components"`
	MarketCondition MarketCondition `json:"market_condition"`
	Metadata        ResultMetadata  `json:"metadata"`
}

// HistoricalWindow is the full causal history supplied to an algorithm:
// every record strictly earlier than the one being scored, in ascending date
// order. Records feed volatility math over raw measurements; Results feed
// trend direction, since a BreadthResult does not retain the reference index
// level.
type HistoricalWindow struct {
	Records []*StandardizedBreadthRecord
	Results []*BreadthResult
}

// LatestResult returns the most recent prior result, or nil when the window
// carries none.
func (w *HistoricalWindow) LatestResult() *BreadthResult {
	if w == nil || len(w.Results) == 0 {
		return nil
	}
	return w.Results[len(w.Results)-1]
}

// ValidationResult aggregates an algorithm's pre-flight checks on a raw
// record. Errors means the record cannot be scored at all; Warnings flag
// degraded inputs that still score.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RecordProvider feeds raw records to the historical batch processor without
// binding the core to any specific storage.
type RecordProvider interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]*RawBreadthRecord, error)
}
