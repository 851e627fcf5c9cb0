package algorithms

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

func testDate() time.Time {
	return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
}

func testRecord(values map[string]float64) *contracts.StandardizedBreadthRecord {
	missing := []string{}
	for _, f := range contracts.CoreFields {
		if _, ok := values[f]; !ok {
			missing = append(missing, f)
		}
	}
	return &contracts.StandardizedBreadthRecord{
		Date:          testDate(),
		Values:        values,
		Sectors:       map[string]float64{},
		DataQuality:   float64(len(values)) / float64(len(contracts.CoreFields)) * 100,
		MissingFields: missing,
	}
}

func sparseRecord() *contracts.StandardizedBreadthRecord {
	return testRecord(map[string]float64{
		contracts.FieldStocksUp4PctDaily:   358,
		contracts.FieldStocksDown4PctDaily: 115,
		contracts.FieldT2108:               45.0,
		contracts.FieldRatio5Day:           1.2,
	})
}

func TestSixFactorSparseRecord(t *testing.T) {
	alg := NewSixFactorAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)

	result, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score out of range: %v", result.Score)
	}

	// 4 of the 9 required fields are present.
	want := 4.0 / 9.0
	if math.Abs(result.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", result.Confidence, want)
	}

	// Daily movers lean bullish, T2108 slightly bearish: mid-band score.
	if result.MarketCondition.Phase != contracts.PhaseNeutral {
		t.Errorf("phase = %s, want NEUTRAL", result.MarketCondition.Phase)
	}
	if result.MarketCondition.TrendDirection != contracts.TrendSideways {
		t.Errorf("trend = %s, want SIDEWAYS with no history", result.MarketCondition.TrendDirection)
	}

	if result.Metadata.AlgorithmUsed != contracts.AlgorithmSixFactor {
		t.Errorf("algorithm_used = %s", result.Metadata.AlgorithmUsed)
	}
	if len(result.Metadata.MissingIndicators) != len(contracts.CoreFields)-4 {
		t.Errorf("missing indicators = %d, want %d", len(result.Metadata.MissingIndicators), len(contracts.CoreFields)-4)
	}
}

func TestSixFactorDeterministic(t *testing.T) {
	alg := NewSixFactorAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)

	first, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if first.Score != second.Score || first.NormalizedScore != second.NormalizedScore ||
		first.Confidence != second.Confidence || first.Components != second.Components {
		t.Error("identical inputs produced different results")
	}
}

func TestSixFactorMonotonicInUpCount(t *testing.T) {
	alg := NewSixFactorAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)

	lower, err := alg.Calculate(testRecord(map[string]float64{
		contracts.FieldStocksUp4PctDaily:   100,
		contracts.FieldStocksDown4PctDaily: 200,
	}), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	higher, err := alg.Calculate(testRecord(map[string]float64{
		contracts.FieldStocksUp4PctDaily:   400,
		contracts.FieldStocksDown4PctDaily: 200,
	}), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if higher.Score <= lower.Score {
		t.Errorf("more advancers must not lower the score: %v <= %v", higher.Score, lower.Score)
	}
}

func TestPairScore(t *testing.T) {
	tests := []struct {
		name     string
		up, down float64
		want     float64
	}{
		{"parity is neutral", 100, 100, 50},
		{"no data is neutral", 0, 0, 50},
		{"all advancing saturates", 100, 0, 100},
		{"all declining floors", 0, 100, 0},
		{"3:1 up", 300, 100, 75},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pairScore(tc.up, tc.down)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("pairScore(%v, %v) = %v, want %v", tc.up, tc.down, got, tc.want)
			}
		})
	}
}

func TestReferenceScoreTracksT2108(t *testing.T) {
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor)

	rec := testRecord(map[string]float64{contracts.FieldT2108: 45})
	if got := referenceScore(rec, cfg); got != 45 {
		t.Errorf("referenceScore = %v, want 45 (t2108 5 below threshold)", got)
	}

	rec = testRecord(map[string]float64{contracts.FieldT2108: 50})
	if got := referenceScore(rec, cfg); got != 50 {
		t.Errorf("referenceScore = %v, want neutral at threshold", got)
	}

	rec = testRecord(map[string]float64{})
	if got := referenceScore(rec, cfg); got != 50 {
		t.Errorf("referenceScore = %v, want neutral when absent", got)
	}
}

func TestSectorScore(t *testing.T) {
	rec := testRecord(nil)
	rec.HasSectorData = true
	rec.Sectors = map[string]float64{
		"technology": 30,
		"energy":     10,
		"utilities":  -10,
	}
	// 40 positive of 50 total magnitude.
	if got := sectorScore(rec); math.Abs(got-80) > 1e-9 {
		t.Errorf("sectorScore = %v, want 80", got)
	}

	rec.HasSectorData = false
	if got := sectorScore(rec); got != 50 {
		t.Errorf("sectorScore without data = %v, want 50", got)
	}
}

func TestClassifyPhase(t *testing.T) {
	mc := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor).MarketConditions

	tests := []struct {
		score float64
		want  contracts.MarketPhase
	}{
		{10, contracts.PhaseStrongBear},
		{30, contracts.PhaseBear},
		{50, contracts.PhaseNeutral},
		{62, contracts.PhaseBull}, // exactly 2 from the boundary: not a transition
		{70, contracts.PhaseBull},
		{90, contracts.PhaseStrongBull},
		{61, contracts.PhaseTransition},
		{59.5, contracts.PhaseTransition},
		{20.5, contracts.PhaseTransition},
	}

	for _, tc := range tests {
		if got := classifyPhase(tc.score, mc); got != tc.want {
			t.Errorf("classifyPhase(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClassifyStrength(t *testing.T) {
	mc := calcconfig.DefaultConfig(contracts.AlgorithmSixFactor).MarketConditions

	tests := []struct {
		score float64
		want  contracts.TrendStrength
	}{
		{50, contracts.StrengthStrong},   // 10 from both 40 and 60
		{62, contracts.StrengthWeak},     // 2 from 60
		{67, contracts.StrengthModerate}, // 7 from 60
		{90, contracts.StrengthStrong},   // 10 from 80
		{99, contracts.StrengthExtreme},  // 19 from 80
	}

	for _, tc := range tests {
		if got := classifyStrength(tc.score, mc); got != tc.want {
			t.Errorf("classifyStrength(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}

	// The multiplier scales the distance before banding.
	mc.TrendStrengthMultiplier = 3
	if got := classifyStrength(67, mc); got != contracts.StrengthExtreme {
		t.Errorf("classifyStrength with multiplier 3 = %s, want EXTREME", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	prior := func(score float64) *contracts.HistoricalWindow {
		return &contracts.HistoricalWindow{
			Results: []*contracts.BreadthResult{{NormalizedScore: score}},
		}
	}

	tests := []struct {
		name   string
		score  float64
		window *contracts.HistoricalWindow
		want   contracts.TrendDirection
	}{
		{"no history", 55, nil, contracts.TrendSideways},
		{"empty window", 55, &contracts.HistoricalWindow{}, contracts.TrendSideways},
		{"rising", 55, prior(50), contracts.TrendUp},
		{"falling", 45, prior(50), contracts.TrendDown},
		{"small delta up", 51.5, prior(50), contracts.TrendSideways},
		{"small delta down", 48.5, prior(50), contracts.TrendSideways},
		{"delta exactly at band", 52, prior(50), contracts.TrendSideways},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyTrend(tc.score, tc.window); got != tc.want {
				t.Errorf("classifyTrend = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCustomFormulaCalculate(t *testing.T) {
	alg := NewCustomAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmCustom)
	cfg.CustomFormula = "(primary*0.5)+(secondary*0.5)"

	rec := sparseRecord()
	result, err := alg.Calculate(rec, cfg, nil)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	want := result.Components.Primary*0.5 + result.Components.Secondary*0.5
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("score = %v, want formula value %v", result.Score, want)
	}
}

func TestCustomFormulaWithParameters(t *testing.T) {
	alg := NewCustomAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmCustom)
	cfg.CustomFormula = "primary * damping"
	cfg.CustomParameters = map[string]float64{"damping": 0.5}

	if err := alg.ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}

	result, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := result.Components.Primary * 0.5
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", result.Score, want)
	}
}

func TestCustomFormulaErrorsSurface(t *testing.T) {
	alg := NewCustomAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmCustom)
	cfg.CustomFormula = "primary / zero"
	cfg.CustomParameters = map[string]float64{"zero": 0}

	_, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestSectorDispersionScore(t *testing.T) {
	rec := testRecord(map[string]float64{})
	rec.HasSectorData = true

	// One sector carries the whole move: no dispersion.
	rec.Sectors = map[string]float64{"technology": 10, "energy": 0, "utilities": 0}
	if got := sectorDispersionScore(rec); got != 0 {
		t.Errorf("concentrated dispersion = %v, want 0", got)
	}

	// Equal magnitudes everywhere: maximal dispersion regardless of sign.
	rec.Sectors = map[string]float64{"technology": 3, "energy": -3, "utilities": 3}
	if got := sectorDispersionScore(rec); math.Abs(got-100) > 1e-9 {
		t.Errorf("uniform dispersion = %v, want 100", got)
	}

	rec.HasSectorData = false
	if got := sectorDispersionScore(rec); got != 50 {
		t.Errorf("dispersion without data = %v, want 50", got)
	}
}

func TestSectorWeightedUsesDispersion(t *testing.T) {
	alg := NewSectorWeightedAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSectorWeighted)
	cfg.Indicators.SectorCountThreshold = 0

	values := map[string]float64{}
	for _, f := range sixFactorRequired {
		values[f] = 100
	}

	// Same bullish magnitude share, very different participation.
	concentrated := testRecord(values)
	concentrated.HasSectorData = true
	concentrated.Sectors = map[string]float64{"technology": 9, "energy": 0.5, "utilities": 0.5}

	broad := testRecord(values)
	broad.HasSectorData = true
	broad.Sectors = map[string]float64{"technology": 4, "energy": 3, "utilities": 3}

	narrow, err := alg.Calculate(concentrated, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	wide, err := alg.Calculate(broad, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if wide.Components.Sector <= narrow.Components.Sector {
		t.Errorf("broad participation sector component = %v, concentrated = %v; want broad higher",
			wide.Components.Sector, narrow.Components.Sector)
	}
	if wide.Score <= narrow.Score {
		t.Errorf("broad score = %v, concentrated = %v; want broad higher", wide.Score, narrow.Score)
	}
}

func TestSectorWeightedConfidencePenalty(t *testing.T) {
	alg := NewSectorWeightedAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmSectorWeighted)

	// Full required fields, but only 3 of the threshold 6 sectors covered.
	values := map[string]float64{}
	for _, f := range sixFactorRequired {
		values[f] = 100
	}
	rec := testRecord(values)
	rec.HasSectorData = true
	rec.Sectors = map[string]float64{"technology": 5, "energy": -3, "utilities": 2}

	result, err := alg.Calculate(rec, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := 1.0 * (3.0 / 6.0)
	if math.Abs(result.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v after sparse sector penalty", result.Confidence, want)
	}
	if len(result.Metadata.Warnings) == 0 {
		t.Error("expected a sector coverage warning")
	}

	// Coverage at or above the threshold takes no penalty.
	for _, s := range []string{"healthcare", "industrials", "financial_services"} {
		rec.Sectors[s] = 1
	}
	result, err = alg.Calculate(rec, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 with full coverage", result.Confidence)
	}
}

func TestNormalizedSigmoidAndDampening(t *testing.T) {
	alg := NewNormalizedAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmNormalized)
	cfg.Indicators.VolatilityAdjustment = false

	// Strongly bullish record: sigmoid keeps it above neutral but inside
	// the output range.
	values := map[string]float64{}
	for _, f := range sixFactorRequired {
		values[f] = 100
	}
	values[contracts.FieldStocksDown4PctDaily] = 1
	values[contracts.FieldStocksDown25PctQuarterly] = 1
	values[contracts.FieldStocksDown25PctMonthly] = 1
	rec := testRecord(values)

	calm, err := alg.Calculate(rec, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if calm.NormalizedScore <= 50 || calm.NormalizedScore > 100 {
		t.Fatalf("normalized score out of expected band: %v", calm.NormalizedScore)
	}

	// With volatility adjustment on and a choppy reference index, the same
	// record scores closer to neutral.
	cfg.Indicators.VolatilityAdjustment = true
	window := &contracts.HistoricalWindow{}
	levels := []float64{5000, 5400, 4900, 5500, 4800, 5600}
	for i, level := range levels {
		window.Records = append(window.Records, &contracts.StandardizedBreadthRecord{
			Date:   testDate().AddDate(0, 0, i-len(levels)),
			Values: map[string]float64{contracts.FieldSPReference: level},
		})
	}

	damped, err := alg.Calculate(rec, cfg, window)
	if err != nil {
		t.Fatal(err)
	}
	if damped.NormalizedScore >= calm.NormalizedScore {
		t.Errorf("volatile regime must pull the score toward neutral: %v >= %v", damped.NormalizedScore, calm.NormalizedScore)
	}
	if damped.NormalizedScore <= 50 {
		t.Errorf("dampening must not flip the score past neutral: %v", damped.NormalizedScore)
	}
}

func TestNormalizedDampeningSkippedWithoutHistory(t *testing.T) {
	alg := NewNormalizedAlgorithm(logger.NewNop())
	cfg := calcconfig.DefaultConfig(contracts.AlgorithmNormalized)

	result, err := alg.Calculate(sparseRecord(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range result.Metadata.Warnings {
		if w == "volatility adjustment skipped: insufficient reference index history" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected skip warning, got %v", result.Metadata.Warnings)
	}
}

func TestValidateRawRecord(t *testing.T) {
	alg := NewSixFactorAlgorithm(logger.NewNop())

	tests := []struct {
		name   string
		fields map[string]any
		valid  bool
	}{
		{
			"complete minimum",
			map[string]any{
				"date":                   "2024-01-15",
				"stocks_up_4pct_daily":   358,
				"stocks_down_4pct_daily": 115,
			},
			true,
		},
		{
			"missing date",
			map[string]any{
				"stocks_up_4pct_daily":   358,
				"stocks_down_4pct_daily": 115,
			},
			false,
		},
		{
			"no declining counts",
			map[string]any{
				"date":                 "2024-01-15",
				"stocks_up_4pct_daily": 358,
			},
			false,
		},
		{
			"no advancing counts",
			map[string]any{
				"date":                   "2024-01-15",
				"stocks_down_4pct_daily": 115,
			},
			false,
		},
		{"empty record", map[string]any{}, false},
		{
			"legacy column names satisfy the minimum",
			map[string]any{
				"date":          "2024-01-15",
				"4% plus daily": 300,
				"4% down daily": 200,
			},
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := alg.Validate(&contracts.RawBreadthRecord{Fields: tc.fields})
			if result.Valid != tc.valid {
				t.Errorf("Valid = %v, want %v (errors: %v)", result.Valid, tc.valid, result.Errors)
			}
			if !tc.valid && len(result.Errors) == 0 {
				t.Error("invalid result must carry reasons")
			}
		})
	}
}

func TestValidateWarnsOnMissingRequired(t *testing.T) {
	alg := NewSixFactorAlgorithm(logger.NewNop())
	result := alg.Validate(&contracts.RawBreadthRecord{Fields: map[string]any{
		"date":                   "2024-01-15",
		"stocks_up_4pct_daily":   358,
		"stocks_down_4pct_daily": 115,
	}})
	if !result.Valid {
		t.Fatalf("expected valid, errors: %v", result.Errors)
	}
	// 7 of the 9 required fields are absent.
	if len(result.Warnings) != 7 {
		t.Errorf("warnings = %d, want 7", len(result.Warnings))
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(logger.NewNop())

	for _, at := range contracts.AlgorithmTypes {
		alg, err := reg.Get(at)
		if err != nil {
			t.Errorf("Get(%s): %v", at, err)
			continue
		}
		if alg.Type() != at {
			t.Errorf("Get(%s) returned %s", at, alg.Type())
		}
	}

	_, err := reg.Get("gradient_boost")
	var unknownErr UnknownAlgorithmError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownAlgorithmError, got %v", err)
	}
	if unknownErr.Algorithm != "gradient_boost" {
		t.Errorf("error names wrong algorithm: %s", unknownErr.Algorithm)
	}

	if got := len(reg.List()); got != len(contracts.AlgorithmTypes) {
		t.Errorf("List() = %d algorithms, want %d", got, len(contracts.AlgorithmTypes))
	}
}
