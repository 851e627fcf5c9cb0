package algorithms

import (
	"math"

	"github.com/wonny/breadthcore/internal/contracts"
)

const (
	// transitionBand marks scores strictly closer than this to any phase
	// threshold as TRANSITION.
	transitionBand = 2.0

	// trendBand is the score delta below which the trend reads SIDEWAYS.
	trendBand = 2.0
)

// classifyCondition derives the market condition from a normalized score,
// the configured thresholds, and the most recent prior result.
func classifyCondition(score, confidence float64, mc contracts.MarketConditions, window *contracts.HistoricalWindow) contracts.MarketCondition {
	return contracts.MarketCondition{
		Phase:           classifyPhase(score, mc),
		Strength:        classifyStrength(score, mc),
		TrendDirection:  classifyTrend(score, window),
		ConfidenceLevel: confidence,
	}
}

func thresholds(mc contracts.MarketConditions) [4]float64 {
	return [4]float64{mc.StrongBear, mc.Bear, mc.Bull, mc.StrongBull}
}

// nearestThresholdDistance is the absolute distance from the score to the
// closest phase boundary.
func nearestThresholdDistance(score float64, mc contracts.MarketConditions) float64 {
	nearest := math.Inf(1)
	for _, t := range thresholds(mc) {
		if d := math.Abs(score - t); d < nearest {
			nearest = d
		}
	}
	return nearest
}

func classifyPhase(score float64, mc contracts.MarketConditions) contracts.MarketPhase {
	// A score sitting on a boundary still classifies into a band; only
	// scores strictly inside the band around a threshold are TRANSITION.
	if nearestThresholdDistance(score, mc) < transitionBand {
		return contracts.PhaseTransition
	}

	switch {
	case score < mc.StrongBear:
		return contracts.PhaseStrongBear
	case score < mc.Bear:
		return contracts.PhaseBear
	case score < mc.Bull:
		return contracts.PhaseNeutral
	case score < mc.StrongBull:
		return contracts.PhaseBull
	default:
		return contracts.PhaseStrongBull
	}
}

func classifyStrength(score float64, mc contracts.MarketConditions) contracts.TrendStrength {
	d := nearestThresholdDistance(score, mc) * mc.TrendStrengthMultiplier
	switch {
	case d >= 15:
		return contracts.StrengthExtreme
	case d >= 10:
		return contracts.StrengthStrong
	case d >= 5:
		return contracts.StrengthModerate
	default:
		return contracts.StrengthWeak
	}
}

func classifyTrend(score float64, window *contracts.HistoricalWindow) contracts.TrendDirection {
	prev := window.LatestResult()
	if prev == nil {
		return contracts.TrendSideways
	}
	delta := score - prev.NormalizedScore
	switch {
	case delta > trendBand:
		return contracts.TrendUp
	case delta < -trendBand:
		return contracts.TrendDown
	default:
		return contracts.TrendSideways
	}
}
