package algorithms

import (
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

// sixFactorRequired are the nine fields the six-factor score is built from.
// The confidence level is the fraction of these the record resolved.
var sixFactorRequired = []string{
	contracts.FieldStocksUp4PctDaily,
	contracts.FieldStocksDown4PctDaily,
	contracts.FieldRatio5Day,
	contracts.FieldRatio10Day,
	contracts.FieldStocksUp25PctQuarterly,
	contracts.FieldStocksDown25PctQuarterly,
	contracts.FieldStocksUp25PctMonthly,
	contracts.FieldStocksDown25PctMonthly,
	contracts.FieldT2108,
}

var sixFactorOptional = []string{
	contracts.FieldStocksUp50PctMonthly,
	contracts.FieldStocksDown50PctMonthly,
	contracts.FieldStocksUp13Pct34Days,
	contracts.FieldStocksDown13Pct34Days,
	contracts.FieldWordenCommonStocks,
	contracts.FieldSPReference,
}

// SixFactorAlgorithm is the reference breadth score: a linear weighted blend
// of the daily, medium-horizon, and T2108 components.
type SixFactorAlgorithm struct {
	logger *logger.Logger
}

// NewSixFactorAlgorithm creates the six-factor algorithm.
func NewSixFactorAlgorithm(log *logger.Logger) *SixFactorAlgorithm {
	return &SixFactorAlgorithm{logger: log}
}

func (a *SixFactorAlgorithm) Name() string                  { return "Six-Factor Breadth Score" }
func (a *SixFactorAlgorithm) Type() contracts.AlgorithmType { return contracts.AlgorithmSixFactor }

func (a *SixFactorAlgorithm) Description() string {
	return "Weighted linear blend of daily movers, medium-horizon movers, and T2108 position with linear output scaling."
}

func (a *SixFactorAlgorithm) RequiredFields() []string { return sixFactorRequired }
func (a *SixFactorAlgorithm) OptionalFields() []string { return sixFactorOptional }

// Validate pre-flights a raw record.
func (a *SixFactorAlgorithm) Validate(raw *contracts.RawBreadthRecord) *contracts.ValidationResult {
	result := validateRaw(raw)
	if result.Valid {
		warnMissing(result, raw, sixFactorRequired)
	}
	return result
}

// ValidateConfig rejects configs the algorithm cannot run with.
func (a *SixFactorAlgorithm) ValidateConfig(cfg *contracts.CalculationConfig) error {
	if cfg.Algorithm != contracts.AlgorithmSixFactor {
		return UnknownAlgorithmError{Algorithm: cfg.Algorithm}
	}
	return nil
}

// Calculate scores one standardized record.
func (a *SixFactorAlgorithm) Calculate(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error) {
	comps := componentScores(rec, cfg)
	raw := composite(comps, cfg.Weights)
	normalized := scaleScore(raw, cfg.Scaling)
	confidence := presenceConfidence(rec, sixFactorRequired)

	a.logger.WithFields(map[string]interface{}{
		"date":       rec.Date.Format("2006-01-02"),
		"raw":        raw,
		"normalized": normalized,
		"confidence": confidence,
	}).Debug("Calculated six-factor score")

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
		},
	}, nil
}
