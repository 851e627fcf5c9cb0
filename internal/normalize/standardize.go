// Package normalize projects raw, arbitrarily-named breadth records onto the
// canonical field schema via priority-ordered fallback lookup.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
)

// MissingKeyError is returned when a record carries no resolvable date. Every
// other absent field is tolerated and reported via MissingFields instead.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required key %q not present in raw record", e.Key)
}

// dateLayouts are tried in order when the date value arrives as a string.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// Standardize maps a raw record onto the canonical schema. For each core
// field it walks the fallback priority list and takes the first present
// non-null value, coerced to float64. Sector data is detected by the presence
// of any of the 11 sector fields; absent sectors default to 0.
func Standardize(raw *contracts.RawBreadthRecord) (*contracts.StandardizedBreadthRecord, error) {
	if raw == nil {
		return nil, &MissingKeyError{Key: "date"}
	}

	date, err := resolveDate(raw)
	if err != nil {
		return nil, err
	}

	std := &contracts.StandardizedBreadthRecord{
		Date:         date,
		Values:       make(map[string]float64, len(contracts.CoreFields)),
		Sectors:      make(map[string]float64, len(contracts.SectorFields)),
		Source:       raw.Source,
		ImportFormat: raw.ImportFormat,
	}

	present := 0
	for _, field := range contracts.CoreFields {
		v, ok := ResolveField(raw, field)
		if !ok {
			std.MissingFields = append(std.MissingFields, field)
			continue
		}
		std.Values[field] = v
		present++
	}

	for _, sector := range contracts.SectorFields {
		v, ok := lookup(raw, sectorPriority[sector])
		if ok {
			std.Sectors[sector] = v
			std.HasSectorData = true
		} else {
			std.Sectors[sector] = 0
		}
	}

	std.DataQuality = float64(present) / float64(len(contracts.CoreFields)) * 100

	return std, nil
}

// ResolveField walks the canonical field's priority list against the raw
// record and returns the first coercible value. Unknown canonical names
// resolve to nothing.
func ResolveField(raw *contracts.RawBreadthRecord, canonical string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	if canonical == contracts.FieldSPReference {
		return lookupWith(raw, fieldPriority[canonical], parseIndexLevel)
	}
	return lookup(raw, fieldPriority[canonical])
}

// HasField reports whether a canonical field resolves on the raw record.
func HasField(raw *contracts.RawBreadthRecord, canonical string) bool {
	_, ok := ResolveField(raw, canonical)
	return ok
}

// HasDate reports whether the raw record carries a resolvable date key.
func HasDate(raw *contracts.RawBreadthRecord) bool {
	_, err := resolveDate(raw)
	return err == nil
}

func resolveDate(raw *contracts.RawBreadthRecord) (time.Time, error) {
	for _, key := range dateKeys {
		v, ok := raw.Fields[key]
		if !ok || v == nil {
			continue
		}
		switch d := v.(type) {
		case time.Time:
			return d, nil
		case string:
			s := strings.TrimSpace(d)
			if s == "" {
				continue
			}
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
	}
	return time.Time{}, &MissingKeyError{Key: "date"}
}

func lookup(raw *contracts.RawBreadthRecord, names []string) (float64, bool) {
	return lookupWith(raw, names, coerceNumber)
}

func lookupWith(raw *contracts.RawBreadthRecord, names []string, coerce func(any) (float64, bool)) (float64, bool) {
	for _, name := range names {
		v, ok := raw.Fields[name]
		if !ok || v == nil {
			continue
		}
		if f, ok := coerce(v); ok {
			return f, true
		}
	}
	return 0, false
}

// coerceNumber converts the value shapes the importers produce: native Go
// numbers, json.Number, and plain numeric strings.
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// parseIndexLevel handles the formatted reference index string the legacy
// exports carry, e.g. `"5,881.63"`: strip quoting and thousands separators,
// then parse as float.
func parseIndexLevel(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.Trim(s, `"'`)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, " ", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return coerceNumber(v)
}
