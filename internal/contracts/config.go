package contracts

import "time"

// AlgorithmType identifies a registered scoring algorithm. The set is closed:
// dispatch is by enumerated constant, never by reflection.
type AlgorithmType string

const (
	AlgorithmSixFactor      AlgorithmType = "six_factor"
	AlgorithmNormalized     AlgorithmType = "normalized"
	AlgorithmSectorWeighted AlgorithmType = "sector_weighted"
	AlgorithmCustom         AlgorithmType = "custom"
)

// AlgorithmTypes lists every known algorithm type in registration order.
var AlgorithmTypes = []AlgorithmType{
	AlgorithmSixFactor,
	AlgorithmNormalized,
	AlgorithmSectorWeighted,
	AlgorithmCustom,
}

// Known reports whether t names a registered algorithm type.
func (t AlgorithmType) Known() bool {
	for _, k := range AlgorithmTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Weights distributes the composite score across component categories.
// Each value must be in [0, 1]; the sum tolerance is [0.9, 1.1].
type Weights struct {
	Primary    float64 `yaml:"primary" json:"primary"`
	Secondary  float64 `yaml:"secondary" json:"secondary"`
	Reference  float64 `yaml:"reference" json:"reference"`
	SectorData float64 `yaml:"sector_data" json:"sector_data"`
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Primary + w.Secondary + w.Reference + w.SectorData
}

// Scaling controls how the 0-100 composite maps onto the output range.
type Scaling struct {
	MinScore            float64 `yaml:"min_score" json:"min_score"`
	MaxScore            float64 `yaml:"max_score" json:"max_score"`
	Normalization       string  `yaml:"normalization" json:"normalization"` // linear | sigmoid
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
}

// Indicators holds per-indicator thresholds and tuning knobs.
type Indicators struct {
	T2108Threshold       float64 `yaml:"t2108_threshold" json:"t2108_threshold"`
	SectorCountThreshold int     `yaml:"sector_count_threshold" json:"sector_count_threshold"`
	VolatilityAdjustment bool    `yaml:"volatility_adjustment" json:"volatility_adjustment"`
	LookbackDays         int     `yaml:"lookback_days" json:"lookback_days"`
}

// MarketConditions holds the four ascending phase thresholds on the
// normalized 0-100 scale plus the strength multiplier.
type MarketConditions struct {
	StrongBear              float64 `yaml:"strong_bear_threshold" json:"strong_bear_threshold"`
	Bear                    float64 `yaml:"bear_threshold" json:"bear_threshold"`
	Bull                    float64 `yaml:"bull_threshold" json:"bull_threshold"`
	StrongBull              float64 `yaml:"strong_bull_threshold" json:"strong_bull_threshold"`
	TrendStrengthMultiplier float64 `yaml:"trend_strength_multiplier" json:"trend_strength_multiplier"`
}

// CalculationConfig is a versioned, named scoring configuration. Treated as
// immutable after creation: edits produce a new version. In-flight
// calculations therefore never observe a half-updated config.
type CalculationConfig struct {
	Version   string        `yaml:"version" json:"version"`
	Algorithm AlgorithmType `yaml:"algorithm" json:"algorithm"`
	Name      string        `yaml:"name,omitempty" json:"name,omitempty"`

	Weights          Weights          `yaml:"weights" json:"weights"`
	Scaling          Scaling          `yaml:"scaling" json:"scaling"`
	Indicators       Indicators       `yaml:"indicators" json:"indicators"`
	MarketConditions MarketConditions `yaml:"market_conditions" json:"market_conditions"`

	CustomFormula    string             `yaml:"custom_formula,omitempty" json:"custom_formula,omitempty"`
	CustomParameters map[string]float64 `yaml:"custom_parameters,omitempty" json:"custom_parameters,omitempty"`

	IsActive  bool      `yaml:"is_active" json:"is_active"`
	IsDefault bool      `yaml:"is_default" json:"is_default"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Clone returns a deep copy. Mutating the copy never touches the original,
// which keeps stored configs safe from in-flight edits.
func (c *CalculationConfig) Clone() *CalculationConfig {
	dup := *c
	if c.CustomParameters != nil {
		dup.CustomParameters = make(map[string]float64, len(c.CustomParameters))
		for k, v := range c.CustomParameters {
			dup.CustomParameters[k] = v
		}
	}
	return &dup
}
