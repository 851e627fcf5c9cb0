package calcconfig

import (
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
)

// DefaultConfig returns the documented built-in default for an algorithm
// type, or nil for an unknown type. The engine falls back to these when no
// store is attached or the store holds no default for the algorithm.
func DefaultConfig(t contracts.AlgorithmType) *contracts.CalculationConfig {
	base := contracts.CalculationConfig{
		Version:   string(t) + "_builtin",
		Algorithm: t,
		Scaling: contracts.Scaling{
			MinScore:            0,
			MaxScore:            100,
			Normalization:       "linear",
			ConfidenceThreshold: 0.6,
		},
		Indicators: contracts.Indicators{
			T2108Threshold:       50,
			SectorCountThreshold: 6,
			LookbackDays:         20,
		},
		MarketConditions: contracts.MarketConditions{
			StrongBear:              20,
			Bear:                    40,
			Bull:                    60,
			StrongBull:              80,
			TrendStrengthMultiplier: 1.0,
		},
		IsActive:  true,
		IsDefault: true,
		CreatedAt: time.Time{},
		UpdatedAt: time.Time{},
	}

	switch t {
	case contracts.AlgorithmSixFactor:
		base.Name = "Six-Factor Breadth Score"
		base.Weights = contracts.Weights{Primary: 0.40, Secondary: 0.30, Reference: 0.30, SectorData: 0}

	case contracts.AlgorithmNormalized:
		base.Name = "Normalized Breadth Score"
		base.Weights = contracts.Weights{Primary: 0.40, Secondary: 0.30, Reference: 0.30, SectorData: 0}
		base.Scaling.Normalization = "sigmoid"
		base.Indicators.VolatilityAdjustment = true

	case contracts.AlgorithmSectorWeighted:
		base.Name = "Sector-Weighted Breadth Score"
		base.Weights = contracts.Weights{Primary: 0.35, Secondary: 0.20, Reference: 0.15, SectorData: 0.30}

	case contracts.AlgorithmCustom:
		base.Name = "Custom Formula Score"
		base.Weights = contracts.Weights{Primary: 0.40, Secondary: 0.30, Reference: 0.30, SectorData: 0}
		base.CustomFormula = "(primary*0.4)+(secondary*0.3)+(reference*0.3)"

	default:
		return nil
	}

	return &base
}
