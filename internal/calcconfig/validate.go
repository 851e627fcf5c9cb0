// Package calcconfig manages versioned, immutable scoring configurations:
// validation, built-in defaults, storage, and export/import.
package calcconfig

import (
	"fmt"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/formula"
)

// ConfigurationError is a hard validation failure (the config is unusable).
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-constraint violation (the config still works).
type Warning struct {
	Code    string
	Message string
}

// weight sum tolerance band: below warns, above errors.
const (
	weightSumWarnBelow = 0.9
	weightSumErrAbove  = 1.1
)

// Validate checks all required constraints. A nil return means the config is
// safe to persist and calculate with.
func Validate(cfg *contracts.CalculationConfig) error {
	if cfg == nil {
		return ConfigurationError{"config", "required"}
	}

	// === Algorithm ===
	if cfg.Algorithm == "" {
		return ConfigurationError{"algorithm", "required"}
	}
	if !cfg.Algorithm.Known() {
		return ConfigurationError{"algorithm", fmt.Sprintf("unknown algorithm type %q", cfg.Algorithm)}
	}

	// === Weights ===
	for _, w := range []struct {
		field string
		value float64
	}{
		{"weights.primary", cfg.Weights.Primary},
		{"weights.secondary", cfg.Weights.Secondary},
		{"weights.reference", cfg.Weights.Reference},
		{"weights.sector_data", cfg.Weights.SectorData},
	} {
		if w.value < 0 || w.value > 1 {
			return ConfigurationError{w.field, fmt.Sprintf("must be in range [0, 1], got %.4f", w.value)}
		}
	}
	if sum := cfg.Weights.Sum(); sum > weightSumErrAbove {
		return ConfigurationError{"weights", fmt.Sprintf("must sum to at most %.1f, got %.4f", weightSumErrAbove, sum)}
	}

	// === Scaling ===
	if cfg.Scaling.MinScore >= cfg.Scaling.MaxScore {
		return ConfigurationError{"scaling", "min_score must be < max_score"}
	}
	if ct := cfg.Scaling.ConfidenceThreshold; ct < 0 || ct > 1 {
		return ConfigurationError{"scaling.confidence_threshold", fmt.Sprintf("must be in range [0, 1], got %.4f", ct)}
	}

	// === Market conditions: four thresholds strictly ascending ===
	mc := cfg.MarketConditions
	if !(mc.StrongBear < mc.Bear && mc.Bear < mc.Bull && mc.Bull < mc.StrongBull) {
		return ConfigurationError{
			Field: "market_conditions",
			Message: fmt.Sprintf("thresholds must be strictly ascending, got %.1f/%.1f/%.1f/%.1f",
				mc.StrongBear, mc.Bear, mc.Bull, mc.StrongBull),
		}
	}
	if mc.TrendStrengthMultiplier <= 0 {
		return ConfigurationError{"market_conditions.trend_strength_multiplier", "must be > 0"}
	}

	// === Indicators ===
	if cfg.Indicators.SectorCountThreshold < 0 || cfg.Indicators.SectorCountThreshold > len(contracts.SectorFields) {
		return ConfigurationError{
			Field:   "indicators.sector_count_threshold",
			Message: fmt.Sprintf("must be in range [0, %d]", len(contracts.SectorFields)),
		}
	}
	if cfg.Indicators.LookbackDays < 0 {
		return ConfigurationError{"indicators.lookback_days", "must be >= 0"}
	}

	// === Custom formula ===
	if cfg.Algorithm == contracts.AlgorithmCustom {
		if cfg.CustomFormula == "" {
			return ConfigurationError{"custom_formula", "required for the custom algorithm"}
		}
	}
	if cfg.CustomFormula != "" {
		expr, err := formula.Parse(cfg.CustomFormula)
		if err != nil {
			return ConfigurationError{"custom_formula", err.Error()}
		}
		allowed := map[string]bool{
			"primary":   true,
			"secondary": true,
			"reference": true,
			"sector":    true,
		}
		for name := range cfg.CustomParameters {
			allowed[name] = true
		}
		if err := expr.CheckVariables(allowed); err != nil {
			return ConfigurationError{"custom_formula", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal).
func Warn(cfg *contracts.CalculationConfig) []Warning {
	var warnings []Warning

	if sum := cfg.Weights.Sum(); sum < weightSumWarnBelow {
		warnings = append(warnings, Warning{
			Code:    "LOW_WEIGHT_SUM",
			Message: fmt.Sprintf("weights sum to %.4f (< %.1f): composite scores will be dampened", sum, weightSumWarnBelow),
		})
	}

	if cfg.Scaling.Normalization != "" && cfg.Scaling.Normalization != "linear" && cfg.Scaling.Normalization != "sigmoid" {
		warnings = append(warnings, Warning{
			Code:    "UNKNOWN_NORMALIZATION",
			Message: fmt.Sprintf("normalization %q is not recognized; linear scaling will be used", cfg.Scaling.Normalization),
		})
	}

	if cfg.Indicators.VolatilityAdjustment && cfg.Indicators.LookbackDays == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_LOOKBACK",
			Message: "volatility adjustment enabled with lookback_days=0: adjustment will be a no-op",
		})
	}

	return warnings
}
