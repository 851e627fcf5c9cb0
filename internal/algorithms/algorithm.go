// Package algorithms implements the pluggable breadth scoring algorithms and
// their registry. Every algorithm consumes a standardized record plus its
// causal history and produces a classified BreadthResult.
package algorithms

import (
	"fmt"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/normalize"
)

// Algorithm is one scoring strategy. Implementations are stateless; all
// tuning comes through the CalculationConfig, so the same input always
// produces the same result.
type Algorithm interface {
	// Name is the human-readable display name.
	Name() string

	// Type is the registry key.
	Type() contracts.AlgorithmType

	// Description explains the scoring approach in one or two sentences.
	Description() string

	// RequiredFields lists the canonical fields the algorithm scores with.
	// Presence of these drives the confidence level; only the minimum
	// viable subset is enforced by Validate.
	RequiredFields() []string

	// OptionalFields lists canonical fields that refine the score when
	// present but never block a calculation.
	OptionalFields() []string

	// Validate pre-flights a raw record, before normalization.
	Validate(raw *contracts.RawBreadthRecord) *contracts.ValidationResult

	// Calculate scores one standardized record. window holds every record
	// strictly earlier than rec, ascending; it may be nil or empty.
	Calculate(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig, window *contracts.HistoricalWindow) (*contracts.BreadthResult, error)

	// ValidateConfig rejects configs the algorithm cannot run with.
	ValidateConfig(cfg *contracts.CalculationConfig) error
}

// upCountFields and downCountFields are the advancing / declining count
// columns. A record is scoreable with a date plus at least one of each.
var upCountFields = []string{
	contracts.FieldStocksUp4PctDaily,
	contracts.FieldStocksUp25PctQuarterly,
	contracts.FieldStocksUp25PctMonthly,
	contracts.FieldStocksUp50PctMonthly,
	contracts.FieldStocksUp13Pct34Days,
}

var downCountFields = []string{
	contracts.FieldStocksDown4PctDaily,
	contracts.FieldStocksDown25PctQuarterly,
	contracts.FieldStocksDown25PctMonthly,
	contracts.FieldStocksDown50PctMonthly,
	contracts.FieldStocksDown13Pct34Days,
}

// validateRaw runs the shared minimum-viability checks: a parseable date,
// at least one advancing count and at least one declining count. Individual
// algorithms append their own warnings on top.
func validateRaw(raw *contracts.RawBreadthRecord) *contracts.ValidationResult {
	result := &contracts.ValidationResult{Valid: true}

	if raw == nil || len(raw.Fields) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "record has no fields")
		return result
	}

	if !normalize.HasDate(raw) {
		result.Valid = false
		result.Errors = append(result.Errors, "missing or unparseable date")
	}

	if !hasAny(raw, upCountFields) {
		result.Valid = false
		result.Errors = append(result.Errors, "no advancing stock count present")
	}
	if !hasAny(raw, downCountFields) {
		result.Valid = false
		result.Errors = append(result.Errors, "no declining stock count present")
	}

	return result
}

func hasAny(raw *contracts.RawBreadthRecord, fields []string) bool {
	for _, f := range fields {
		if normalize.HasField(raw, f) {
			return true
		}
	}
	return false
}

// warnMissing appends a warning per absent required field.
func warnMissing(result *contracts.ValidationResult, raw *contracts.RawBreadthRecord, required []string) {
	for _, f := range required {
		if !normalize.HasField(raw, f) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("field %s missing: confidence will be reduced", f))
		}
	}
}

// presenceConfidence is the fraction of required fields the record resolved.
func presenceConfidence(rec *contracts.StandardizedBreadthRecord, required []string) float64 {
	if len(required) == 0 {
		return 1
	}
	present := 0
	for _, f := range required {
		if rec.Has(f) {
			present++
		}
	}
	return float64(present) / float64(len(required))
}
