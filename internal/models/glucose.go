// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// MmolLConversionFactor converts mg/dL to mmol/L
const MmolLConversionFactor = 0.0555

// RawReading is a glucose record as returned by the Share service, e.g.
// {"WT":"Date(1691455258000)","ST":"Date(1691455258000)","DT":"Date(1691455258000-0400)","Value":85,"Trend":"Flat"}
type RawReading struct {
	WT    string          `json:"WT,omitempty"`
	ST    string          `json:"ST,omitempty"`
	DT    string          `json:"DT"`
	Value json.RawMessage `json:"Value,omitempty"` // Kept raw so a bad value only fails its own reading
	Trend json.RawMessage `json:"Trend,omitempty"` // String name or legacy numeric index
}

// NormalizedReading is a reading with both supported units and a resolved timestamp
type NormalizedReading struct {
	ValueMgDl       float64    `json:"valueMgDl"`
	ValueMmolL      float64    `json:"valueMmolL"`
	TimestampMillis int64      `json:"timestampMillis"`
	Raw             RawReading `json:"raw"`
}

// Time returns the time of the reading
func (n *NormalizedReading) Time() time.Time {
	return time.UnixMilli(n.TimestampMillis)
}

// FormatError reports a reading payload that cannot be normalized
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid glucose reading format: %s %s", e.Field, e.Reason)
}

var dateRe = regexp.MustCompile(`Date\((\d+)[^)]*\)`)

// ExtractTimestamp returns the epoch milliseconds embedded in a string like
// "Date(1691455258000-0400)". Anything unparseable yields 0.
func ExtractTimestamp(dt string) int64 {
	m := dateRe.FindStringSubmatch(dt)
	if m == nil {
		return 0
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// MmolL converts a mg/dL value to mmol/L rounded to one decimal place
func MmolL(mgdl float64) float64 {
	return math.Round(mgdl*MmolLConversionFactor*10) / 10
}

// Normalize converts a raw reading into its canonical form
func Normalize(raw RawReading) (NormalizedReading, error) {
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return NormalizedReading{}, &FormatError{Field: "Value", Reason: "is missing"}
	}

	var value float64
	if err := json.Unmarshal(raw.Value, &value); err != nil {
		return NormalizedReading{}, &FormatError{Field: "Value", Reason: "is not a number"}
	}

	return NormalizedReading{
		ValueMgDl:       value,
		ValueMmolL:      MmolL(value),
		TimestampMillis: ExtractTimestamp(raw.DT),
		Raw:             raw,
	}, nil
}

// NormalizeAll normalizes every reading, failing on the first bad one
func NormalizeAll(raws []RawReading) ([]NormalizedReading, error) {
	out := make([]NormalizedReading, 0, len(raws))
	for i := range raws {
		n, err := Normalize(raws[i])
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// trendNames is indexed by the legacy numeric trend value
var trendNames = []string{
	"None",
	"DoubleUp",
	"SingleUp",
	"FortyFiveUp",
	"Flat",
	"FortyFiveDown",
	"SingleDown",
	"DoubleDown",
	"NotComputable",
	"RateOutOfRange",
}

// TrendName returns the vendor trend direction as a name
func (r *RawReading) TrendName() string {
	if len(r.Trend) == 0 {
		return ""
	}

	var name string
	if err := json.Unmarshal(r.Trend, &name); err == nil {
		return name
	}

	var idx int
	if err := json.Unmarshal(r.Trend, &idx); err == nil && idx >= 0 && idx < len(trendNames) {
		return trendNames[idx]
	}

	return ""
}

// TrendArrow returns the Unicode arrow character for the vendor trend
func (r *RawReading) TrendArrow() string {
	arrows := map[string]string{
		"DoubleUp":       "⇈",
		"SingleUp":       "↑",
		"FortyFiveUp":    "↗",
		"Flat":           "→",
		"FortyFiveDown":  "↘",
		"SingleDown":     "↓",
		"DoubleDown":     "⇊",
		"NotComputable":  "?",
		"RateOutOfRange": "⚠",
	}

	if arrow, ok := arrows[r.TrendName()]; ok {
		return arrow
	}

	return "-"
}
