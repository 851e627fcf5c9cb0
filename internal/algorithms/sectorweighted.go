package algorithms

import (
	"fmt"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

// SectorWeightedAlgorithm gives the sector breakdown its own weighted
// component. Records covering fewer sectors than the configured threshold
// still score, with a proportional confidence penalty.
type SectorWeightedAlgorithm struct {
	logger *logger.Logger
}

// NewSectorWeightedAlgorithm creates the sector-weighted algorithm.
func NewSectorWeightedAlgorithm(log *logger.Logger) *SectorWeightedAlgorithm {
	return &SectorWeightedAlgorithm{logger: log}
}

func (a *SectorWeightedAlgorithm) Name() string { return "Sector-Weighted Breadth Score" }

func (a *SectorWeightedAlgorithm) Type() contracts.AlgorithmType {
	return contracts.AlgorithmSectorWeighted
}

func (a *SectorWeightedAlgorithm) Description() string {
	return "Weighted blend where sector breadth carries its own direction-plus-dispersion component; sparse sector coverage reduces confidence."
}

func (a *SectorWeightedAlgorithm) RequiredFields() []string { return sixFactorRequired }
func (a *SectorWeightedAlgorithm) OptionalFields() []string { return sixFactorOptional }

// Validate pre-flights a raw record. Missing sector data is a warning, not
// an error.
func (a *SectorWeightedAlgorithm) Validate(raw *contracts.RawBreadthRecord) *contracts.ValidationResult {
	result := validateRaw(raw)
	if result.Valid {
		warnMissing(result, raw, sixFactorRequired)
	}
	return result
}

// ValidateConfig rejects configs the algorithm cannot run with.
func (a *SectorWeightedAlgorithm) ValidateConfig(cfg *contracts.CalculationConfig) error {
	if cfg.Algorithm != contracts.AlgorithmSectorWeighted {
		return UnknownAlgorithmError{Algorithm: cfg.Algorithm}
	}
	return nil
}

// Calculate scores one standardized record.
func (a *SectorWeightedAlgorithm) Calculate(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error) {
	comps := componentScores(rec, cfg)
	// The sector component here blends direction with dispersion: a rally
	// carried by one sector is weaker breadth than the same net move spread
	// across all eleven.
	comps.Sector = (comps.Sector + sectorDispersionScore(rec)) / 2
	raw := composite(comps, cfg.Weights)
	normalized := scaleScore(raw, cfg.Scaling)

	confidence := presenceConfidence(rec, sixFactorRequired)
	var warnings []string

	// Sparse sector coverage scales confidence by coverage over threshold.
	if threshold := cfg.Indicators.SectorCountThreshold; threshold > 0 {
		covered := rec.NonZeroSectors()
		if covered < threshold {
			confidence *= float64(covered) / float64(threshold)
			warnings = append(warnings, fmt.Sprintf("sector coverage %d below threshold %d", covered, threshold))
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"date":       rec.Date.Format("2006-01-02"),
		"raw":        raw,
		"normalized": normalized,
		"sectors":    rec.NonZeroSectors(),
		"confidence": confidence,
	}).Debug("Calculated sector-weighted score")

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
