package algorithms

import (
	"math"

	"github.com/wonny/breadthcore/internal/contracts"
)

// Every component maps onto a 0-100 scale where 50 is neutral: advancing and
// declining pressure in balance. The composite is a weighted sum, so weights
// summing below 1.0 dampen the score toward 0 rather than renormalizing.

// pairScore maps an up/down count pair onto 0-100 via r/(r+1).
// Monotonic in the ratio, 50 at parity, saturating toward the extremes.
func pairScore(up, down float64) float64 {
	if up <= 0 && down <= 0 {
		return 50
	}
	if down <= 0 {
		return 100
	}
	if up <= 0 {
		return 0
	}
	r := up / down
	return 100 * r / (r + 1)
}

// ratioValueScore maps a precomputed up/down ratio (ratio_5day, ratio_10day)
// onto the same scale.
func ratioValueScore(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return 100 * r / (r + 1)
}

// countPairs are the secondary (medium and long horizon) up/down columns.
var countPairs = [][2]string{
	{contracts.FieldStocksUp25PctQuarterly, contracts.FieldStocksDown25PctQuarterly},
	{contracts.FieldStocksUp25PctMonthly, contracts.FieldStocksDown25PctMonthly},
	{contracts.FieldStocksUp50PctMonthly, contracts.FieldStocksDown50PctMonthly},
	{contracts.FieldStocksUp13Pct34Days, contracts.FieldStocksDown13Pct34Days},
}

// primaryScore blends the daily 4% movers with the 5- and 10-day ratios.
// Absent inputs are skipped; with nothing present the component is neutral.
func primaryScore(rec *contracts.StandardizedBreadthRecord) float64 {
	var parts []float64

	up, upOK := rec.Get(contracts.FieldStocksUp4PctDaily)
	down, downOK := rec.Get(contracts.FieldStocksDown4PctDaily)
	if upOK && downOK {
		parts = append(parts, pairScore(up, down))
	}

	if r, ok := rec.Get(contracts.FieldRatio5Day); ok {
		parts = append(parts, ratioValueScore(r))
	}
	if r, ok := rec.Get(contracts.FieldRatio10Day); ok {
		parts = append(parts, ratioValueScore(r))
	}

	return average(parts)
}

// secondaryScore averages the medium and long horizon count pairs. A pair
// contributes only when both sides resolved.
func secondaryScore(rec *contracts.StandardizedBreadthRecord) float64 {
	var parts []float64
	for _, pair := range countPairs {
		up, upOK := rec.Get(pair[0])
		down, downOK := rec.Get(pair[1])
		if upOK && downOK {
			parts = append(parts, pairScore(up, down))
		}
	}
	return average(parts)
}

// referenceScore positions T2108 against its configured threshold. One point
// of T2108 moves the component one point; absent T2108 is neutral.
func referenceScore(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig) float64 {
	t2108, ok := rec.Get(contracts.FieldT2108)
	if !ok {
		return 50
	}
	return clamp(50+(t2108-cfg.Indicators.T2108Threshold), 0, 100)
}

// sectorScore is the bullish share of total sector magnitude: the sum of
// positive sector values over the sum of absolute values. 50 when sector
// data is absent or nets to zero everywhere.
func sectorScore(rec *contracts.StandardizedBreadthRecord) float64 {
	if !rec.HasSectorData {
		return 50
	}
	var positive, total float64
	for _, v := range rec.Sectors {
		if v > 0 {
			positive += v
		}
		total += math.Abs(v)
	}
	if total == 0 {
		return 50
	}
	return 100 * positive / total
}

// sectorDispersionScore measures how evenly movement spreads across the
// sector breakdown: normalized Shannon entropy of the absolute sector
// magnitudes on the 0-100 scale. A move concentrated in one sector scores
// near 0, equal participation everywhere scores 100. 50 when sector data is
// absent or nets to zero.
func sectorDispersionScore(rec *contracts.StandardizedBreadthRecord) float64 {
	if !rec.HasSectorData || len(rec.Sectors) < 2 {
		return 50
	}
	var total float64
	for _, v := range rec.Sectors {
		total += math.Abs(v)
	}
	if total == 0 {
		return 50
	}
	var entropy float64
	for _, v := range rec.Sectors {
		m := math.Abs(v)
		if m == 0 {
			continue
		}
		p := m / total
		entropy -= p * math.Log(p)
	}
	return 100 * entropy / math.Log(float64(len(rec.Sectors)))
}

// componentScores computes all four component values for one record.
func componentScores(rec *contracts.StandardizedBreadthRecord, cfg *contracts.CalculationConfig) contracts.Components {
	return contracts.Components{
		Primary:   primaryScore(rec),
		Secondary: secondaryScore(rec),
		Reference: referenceScore(rec, cfg),
		Sector:    sectorScore(rec),
	}
}

// composite is the weighted component sum on the 0-100 scale.
func composite(c contracts.Components, w contracts.Weights) float64 {
	return c.Primary*w.Primary + c.Secondary*w.Secondary + c.Reference*w.Reference + c.Sector*w.SectorData
}

// scaleScore maps a 0-100 raw score onto the configured output range.
func scaleScore(raw float64, s contracts.Scaling) float64 {
	scaled := s.MinScore + (raw/100)*(s.MaxScore-s.MinScore)
	return clamp(scaled, s.MinScore, s.MaxScore)
}

// sigmoidScore squashes a 0-100 raw score through a logistic curve centered
// at 50. Scores near the middle spread out; extremes compress.
func sigmoidScore(raw float64) float64 {
	return 100 / (1 + math.Exp(-(raw-50)/10))
}

func average(parts []float64) float64 {
	if len(parts) == 0 {
		return 50
	}
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
