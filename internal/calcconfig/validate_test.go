package calcconfig

import (
	"errors"
	"testing"

	"github.com/wonny/breadthcore/internal/contracts"
)

func validConfig() *contracts.CalculationConfig {
	return DefaultConfig(contracts.AlgorithmSixFactor)
}

func TestValidateWeightSumTolerance(t *testing.T) {
	tests := []struct {
		name    string
		weights contracts.Weights
		wantErr bool
	}{
		{"sums to exactly 1.0", contracts.Weights{Primary: 0.4, Secondary: 0.3, Reference: 0.3}, false},
		{"upper tolerance 1.1", contracts.Weights{Primary: 0.5, Secondary: 0.3, Reference: 0.3}, false},
		{"lower tolerance 0.9 accepted", contracts.Weights{Primary: 0.3, Secondary: 0.3, Reference: 0.3}, false},
		{"above 1.1 rejected", contracts.Weights{Primary: 0.5, Secondary: 0.4, Reference: 0.3}, true},
		{"below 0.9 accepted with warning", contracts.Weights{Primary: 0.2, Secondary: 0.2, Reference: 0.2}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Weights = tc.weights

			err := Validate(cfg)
			if tc.wantErr && err == nil {
				t.Fatal("expected ConfigurationError, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if tc.wantErr {
				var cerr ConfigurationError
				if !errors.As(err, &cerr) {
					t.Fatalf("expected ConfigurationError, got %T", err)
				}
			}
		})
	}
}

func TestWarnBelowWeightSumBand(t *testing.T) {
	cfg := validConfig()
	cfg.Weights = contracts.Weights{Primary: 0.2, Secondary: 0.2, Reference: 0.2}

	warnings := Warn(cfg)
	found := false
	for _, w := range warnings {
		if w.Code == "LOW_WEIGHT_SUM" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LOW_WEIGHT_SUM warning, got %v", warnings)
	}
}

func TestValidateWeightRange(t *testing.T) {
	cfg := validConfig()
	cfg.Weights.Primary = 1.2
	if err := Validate(cfg); err == nil {
		t.Error("expected error for weight > 1")
	}

	cfg = validConfig()
	cfg.Weights.Secondary = -0.1
	if err := Validate(cfg); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestValidateScalingOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Scaling.MinScore = 100
	cfg.Scaling.MaxScore = 100
	if err := Validate(cfg); err == nil {
		t.Error("expected error for min_score >= max_score")
	}
}

func TestValidateConfidenceRange(t *testing.T) {
	cfg := validConfig()
	cfg.Scaling.ConfidenceThreshold = 1.5
	if err := Validate(cfg); err == nil {
		t.Error("expected error for confidence threshold > 1")
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	tests := []struct {
		name    string
		mc      contracts.MarketConditions
		wantErr bool
	}{
		{"ascending", contracts.MarketConditions{StrongBear: 20, Bear: 40, Bull: 60, StrongBull: 80, TrendStrengthMultiplier: 1}, false},
		{"strong_bear >= bear", contracts.MarketConditions{StrongBear: 40, Bear: 40, Bull: 60, StrongBull: 80, TrendStrengthMultiplier: 1}, true},
		{"bull >= strong_bull", contracts.MarketConditions{StrongBear: 20, Bear: 40, Bull: 80, StrongBull: 80, TrendStrengthMultiplier: 1}, true},
		{"inverted", contracts.MarketConditions{StrongBear: 80, Bear: 60, Bull: 40, StrongBull: 20, TrendStrengthMultiplier: 1}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.MarketConditions = tc.mc

			err := Validate(cfg)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
		})
	}
}

func TestValidateUnknownAlgorithm(t *testing.T) {
	cfg := validConfig()
	cfg.Algorithm = "gradient_boost"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown algorithm type")
	}
}

func TestValidateCustomFormula(t *testing.T) {
	cfg := DefaultConfig(contracts.AlgorithmCustom)
	if err := Validate(cfg); err != nil {
		t.Fatalf("builtin custom default must validate, got %v", err)
	}

	cfg.CustomFormula = "(primary*0.5)+(secondary*0.5)"
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid formula, got %v", err)
	}

	cfg.CustomFormula = "primary ^ 2"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for disallowed token")
	}

	cfg.CustomFormula = "primary * volume"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown variable")
	}

	// Custom parameters extend the variable set.
	cfg.CustomFormula = "primary * boost"
	cfg.CustomParameters = map[string]float64{"boost": 1.5}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected custom parameter to be accepted, got %v", err)
	}

	cfg.CustomFormula = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for custom algorithm without formula")
	}
}

func TestBuiltinDefaultsValidate(t *testing.T) {
	for _, alg := range contracts.AlgorithmTypes {
		cfg := DefaultConfig(alg)
		if cfg == nil {
			t.Fatalf("no builtin default for %s", alg)
		}
		if err := Validate(cfg); err != nil {
			t.Errorf("builtin default for %s invalid: %v", alg, err)
		}
		if len(Warn(cfg)) != 0 {
			t.Errorf("builtin default for %s produces warnings: %v", alg, Warn(cfg))
		}
	}

	if DefaultConfig("nope") != nil {
		t.Error("expected nil default for unknown algorithm")
	}
}

func TestSectorWeightedDefaultWeights(t *testing.T) {
	cfg := DefaultConfig(contracts.AlgorithmSectorWeighted)
	if cfg.Weights.SectorData != 0.30 {
		t.Errorf("expected sector_data weight 0.30, got %v", cfg.Weights.SectorData)
	}
	if sum := cfg.Weights.Sum(); sum != 1.0 {
		t.Errorf("expected weights to sum to 1.0, got %v", sum)
	}
}
