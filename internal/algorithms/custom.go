package algorithms

import (
	"fmt"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/formula"
	"github.com/wonny/breadthcore/pkg/logger"
)

// CustomAlgorithm evaluates a user-supplied arithmetic formula over the four
// component scores plus any configured custom parameters. The grammar is
// restricted to arithmetic; the config layer rejects anything else before a
// formula ever reaches this point.
type CustomAlgorithm struct {
	logger *logger.Logger
}

// NewCustomAlgorithm creates the custom formula algorithm.
func NewCustomAlgorithm(log *logger.Logger) *CustomAlgorithm {
	return &CustomAlgorithm{logger: log}
}

func (a *CustomAlgorithm) Name() string                  { return "Custom Formula Score" }
func (a *CustomAlgorithm) Type() contracts.AlgorithmType { return contracts.AlgorithmCustom }

func (a *CustomAlgorithm) Description() string {
	return "Evaluates a restricted arithmetic formula over the component scores (primary, secondary, reference, sector)."
}

func (a *CustomAlgorithm) RequiredFields() []string { return sixFactorRequired }
func (a *CustomAlgorithm) OptionalFields() []string { return sixFactorOptional }

// Validate pre-flights a raw record.
func (a *CustomAlgorithm) Validate(raw *contracts.RawBreadthRecord) *contracts.ValidationResult {
	result := validateRaw(raw)
	if result.Valid {
		warnMissing(result, raw, sixFactorRequired)
	}
	return result
}

// ValidateConfig additionally requires a parseable formula over known
// variables.
func (a *CustomAlgorithm) ValidateConfig(cfg *contracts.CalculationConfig) error {
	if cfg.Algorithm != contracts.AlgorithmCustom {
		return UnknownAlgorithmError{Algorithm: cfg.Algorithm}
	}
	if cfg.CustomFormula == "" {
		return fmt.Errorf("custom algorithm requires a formula")
	}
	expr, err := formula.Parse(cfg.CustomFormula)
	if err != nil {
		return err
	}
	return expr.CheckVariables(a.allowedVariables(cfg))
}

func (a *CustomAlgorithm) allowedVariables(cfg *contracts.CalculationConfig) map[string]bool {
	allowed := map[string]bool{
		"primary":   true,
		"secondary": true,
		"reference": true,
		"sector":    true,
	}
	for name := range cfg.CustomParameters {
		allowed[name] = true
	}
	return allowed
}

// Calculate evaluates the configured formula against the component scores.
func (a *CustomAlgorithm) Calculate(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error) {
	comps := componentScores(rec, cfg)

	vars := map[string]float64{
		"primary":   comps.Primary,
		"secondary": comps.Secondary,
		"reference": comps.Reference,
		"sector":    comps.Sector,
	}
	for name, value := range cfg.CustomParameters {
		vars[name] = value
	}

	raw, err := formula.Eval(cfg.CustomFormula, vars)
	if err != nil {
		return nil, err
	}
	raw = clamp(raw, 0, 100)
	normalized := scaleScore(raw, cfg.Scaling)
	confidence := presenceConfidence(rec, sixFactorRequired)

	a.logger.WithFields(map[string]interface{}{
		"date":       rec.Date.Format("2006-01-02"),
		"formula":    cfg.CustomFormula,
		"raw":        raw,
		"normalized": normalized,
	}).Debug("Calculated custom formula score")

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
