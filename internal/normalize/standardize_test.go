package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
)

func rawRecord(fields map[string]any) *contracts.RawBreadthRecord {
	return &contracts.RawBreadthRecord{Fields: fields, Source: "test", ImportFormat: "csv"}
}

func TestStandardizeMissingDate(t *testing.T) {
	_, err := Standardize(rawRecord(map[string]any{
		"stocksUp4Pct": 358,
	}))
	if err == nil {
		t.Fatal("expected error for record without date")
	}

	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %T: %v", err, err)
	}
	if missing.Key != "date" {
		t.Errorf("expected key=date, got %s", missing.Key)
	}
}

func TestStandardizeFallbackPriority(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		field  string
		want   float64
	}{
		{
			name:   "canonical name wins",
			fields: map[string]any{"date": "2024-01-15", "stocks_up_4pct_daily": 100, "stocksUp4Pct": 200},
			field:  contracts.FieldStocksUp4PctDaily,
			want:   100,
		},
		{
			name:   "camelCase spelling",
			fields: map[string]any{"date": "2024-01-15", "stocksUp4Pct": 358},
			field:  contracts.FieldStocksUp4PctDaily,
			want:   358,
		},
		{
			name:   "standard era CSV header",
			fields: map[string]any{"date": "2024-01-15", "Number of stocks up 4% plus today": "412"},
			field:  contracts.FieldStocksUp4PctDaily,
			want:   412,
		},
		{
			name:   "early era CSV header",
			fields: map[string]any{"date": "2024-01-15", "4% plus daily": 77},
			field:  contracts.FieldStocksUp4PctDaily,
			want:   77,
		},
		{
			name:   "t2108 legacy header",
			fields: map[string]any{"date": "2024-01-15", "T2108 (% of stocks above 40 day MA)": 45.5},
			field:  contracts.FieldT2108,
			want:   45.5,
		},
		{
			name:   "formatted index level",
			fields: map[string]any{"date": "2024-01-15", "S&P": `"5,881.63"`},
			field:  contracts.FieldSPReference,
			want:   5881.63,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			std, err := Standardize(rawRecord(tc.fields))
			if err != nil {
				t.Fatalf("Standardize failed: %v", err)
			}
			got, ok := std.Get(tc.field)
			if !ok {
				t.Fatalf("field %s not resolved", tc.field)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestStandardizeDataQualityBounds(t *testing.T) {
	std, err := Standardize(rawRecord(map[string]any{
		"date":           "2024-01-15",
		"stocksUp4Pct":   358,
		"stocksDown4Pct": 115,
		"t2108":          45.0,
		"ratio_5day":     1.2,
	}))
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	if std.DataQuality < 0 || std.DataQuality > 100 {
		t.Errorf("data quality out of range: %v", std.DataQuality)
	}

	// 4 of 15 core fields present
	wantQuality := 4.0 / 15.0 * 100
	if math.Abs(std.DataQuality-wantQuality) > 1e-9 {
		t.Errorf("expected quality %.4f, got %.4f", wantQuality, std.DataQuality)
	}

	if got, want := len(std.MissingFields), len(contracts.CoreFields)-4; got != want {
		t.Errorf("expected %d missing fields, got %d", want, got)
	}
}

func TestStandardizeSectorDefaults(t *testing.T) {
	std, err := Standardize(rawRecord(map[string]any{
		"date":             "2024-01-15",
		"technologySector": 2.4,
		"energySector":     -1.1,
	}))
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	if !std.HasSectorData {
		t.Error("expected sector data to be detected")
	}
	if len(std.Sectors) != len(contracts.SectorFields) {
		t.Errorf("expected all %d sectors assembled, got %d", len(contracts.SectorFields), len(std.Sectors))
	}
	if std.Sectors["technology"] != 2.4 {
		t.Errorf("expected technology=2.4, got %v", std.Sectors["technology"])
	}
	if std.Sectors["utilities"] != 0 {
		t.Errorf("expected absent sector to default to 0, got %v", std.Sectors["utilities"])
	}
	if std.NonZeroSectors() != 2 {
		t.Errorf("expected 2 non-zero sectors, got %d", std.NonZeroSectors())
	}
}

func TestStandardizeNoSectorData(t *testing.T) {
	std, err := Standardize(rawRecord(map[string]any{
		"date":         "2024-01-15",
		"stocksUp4Pct": 100,
	}))
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}
	if std.HasSectorData {
		t.Error("expected no sector data")
	}
}

func TestDateLayouts(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"01/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024/01/15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		std, err := Standardize(rawRecord(map[string]any{"date": tc.value}))
		if err != nil {
			t.Fatalf("Standardize(%q) failed: %v", tc.value, err)
		}
		if !std.Date.Equal(tc.want) {
			t.Errorf("date %q: expected %v, got %v", tc.value, tc.want, std.Date)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		value any
		want  float64
		ok    bool
	}{
		{358, 358, true},
		{int64(12), 12, true},
		{1.25, 1.25, true},
		{"45.5", 45.5, true},
		{" 45.5 ", 45.5, true},
		{"", 0, false},
		{"n/a", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tc := range tests {
		got, ok := coerceNumber(tc.value)
		if ok != tc.ok {
			t.Errorf("coerceNumber(%v): expected ok=%v, got %v", tc.value, tc.ok, ok)
			continue
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("coerceNumber(%v): expected %v, got %v", tc.value, tc.want, got)
		}
	}
}

func TestParseIndexLevel(t *testing.T) {
	tests := []struct {
		value any
		want  float64
		ok    bool
	}{
		{`"5,881.63"`, 5881.63, true},
		{"5,881.63", 5881.63, true},
		{"4769.83", 4769.83, true},
		{4769.83, 4769.83, true},
		{"", 0, false},
	}

	for _, tc := range tests {
		got, ok := parseIndexLevel(tc.value)
		if ok != tc.ok {
			t.Errorf("parseIndexLevel(%v): expected ok=%v, got %v", tc.value, tc.ok, ok)
			continue
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseIndexLevel(%v): expected %v, got %v", tc.value, tc.want, got)
		}
	}
}
