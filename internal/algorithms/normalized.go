package algorithms

import (
	"math"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

// NormalizedAlgorithm applies sigmoid normalization to the weighted blend
// and optionally dampens the score in volatile reference-index regimes.
type NormalizedAlgorithm struct {
	logger *logger.Logger
}

// NewNormalizedAlgorithm creates the normalized algorithm.
func NewNormalizedAlgorithm(log *logger.Logger) *NormalizedAlgorithm {
	return &NormalizedAlgorithm{logger: log}
}

func (a *NormalizedAlgorithm) Name() string                  { return "Normalized Breadth Score" }
func (a *NormalizedAlgorithm) Type() contracts.AlgorithmType { return contracts.AlgorithmNormalized }

func (a *NormalizedAlgorithm) Description() string {
	return "Sigmoid-normalized weighted blend with optional volatility dampening from the reference index history."
}

func (a *NormalizedAlgorithm) RequiredFields() []string { return sixFactorRequired }

func (a *NormalizedAlgorithm) OptionalFields() []string {
	return append([]string{}, sixFactorOptional...)
}

// Validate pre-flights a raw record.
func (a *NormalizedAlgorithm) Validate(raw *contracts.RawBreadthRecord) *contracts.ValidationResult {
	result := validateRaw(raw)
	if result.Valid {
		warnMissing(result, raw, sixFactorRequired)
	}
	return result
}

// ValidateConfig rejects configs the algorithm cannot run with.
func (a *NormalizedAlgorithm) ValidateConfig(cfg *contracts.CalculationConfig) error {
	if cfg.Algorithm != contracts.AlgorithmNormalized {
		return UnknownAlgorithmError{Algorithm: cfg.Algorithm}
	}
	return nil
}

// Calculate scores one standardized record.
func (a *NormalizedAlgorithm) Calculate(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error) {
	comps := componentScores(rec, cfg)
	raw := composite(comps, cfg.Weights)

	normalized := raw
	if cfg.Scaling.Normalization == "sigmoid" {
		normalized = sigmoidScore(raw)
	}

	var warnings []string
	if cfg.Indicators.VolatilityAdjustment {
		factor, samples := volatilityDampening(window, cfg.Indicators.LookbackDays)
		if samples < 2 {
			warnings = append(warnings, "volatility adjustment skipped: insufficient reference index history")
		} else {
			// Pull the score toward neutral in choppy regimes.
			normalized = 50 + (normalized-50)*factor
		}
	}

	normalized = scaleScore(normalized, cfg.Scaling)
	confidence := presenceConfidence(rec, sixFactorRequired)

	a.logger.WithFields(map[string]interface{}{
		"date":       rec.Date.Format("2006-01-02"),
		"raw":        raw,
		"normalized": normalized,
	}).Debug("Calculated normalized score")

	return &contracts.BreadthResult{
		Date:            rec.Date,
		Score:           raw,
		NormalizedScore: normalized,
		Confidence:      confidence,
		Components:      comps,
		MarketCondition: classifyCondition(normalized, confidence, cfg.MarketConditions, window),
		Metadata: contracts.ResultMetadata{
			AlgorithmUsed:     a.Type(),
			ConfigVersion:     cfg.Version,
			DataQuality:       rec.DataQuality,
			MissingIndicators: rec.MissingFields,
			Warnings:          warnings,
		},
	}, nil
}

// volatilityDampening derives a (0, 1] dampening factor from the day-over-day
// reference index moves across the lookback window. Calm regimes return a
// factor near 1; a dispersed index shrinks the score's deviation from 50.
// samples is the number of index levels found in the window tail.
func volatilityDampening(window *contracts.HistoricalWindow, lookbackDays int) (factor float64, samples int) {
	if window == nil || lookbackDays <= 0 {
		return 1, 0
	}

	levels := make([]float64, 0, lookbackDays)
	records := window.Records
	if len(records) > lookbackDays {
		records = records[len(records)-lookbackDays:]
	}
	for _, r := range records {
		if v, ok := r.Get(contracts.FieldSPReference); ok && v > 0 {
			levels = append(levels, v)
		}
	}
	if len(levels) < 2 {
		return 1, len(levels)
	}

	// Standard deviation of daily percentage moves.
	returns := make([]float64, 0, len(levels)-1)
	for i := 1; i < len(levels); i++ {
		returns = append(returns, (levels[i]-levels[i-1])/levels[i-1])
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)

	// 1% daily dispersion halves the deviation from neutral.
	return 1 / (1 + stddev*100), len(levels)
}
