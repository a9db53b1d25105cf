// Package stats computes summary statistics over a glucose history
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
)

// Summary holds statistics for a set of readings. Percentages are 0-100.
type Summary struct {
	Count                  int       `json:"count"`
	From                   time.Time `json:"from"`
	To                     time.Time `json:"to"`
	Mean                   float64   `json:"mean"` // mg/dL
	Median                 float64   `json:"median"`
	Min                    float64   `json:"min"`
	Max                    float64   `json:"max"`
	StdDev                 float64   `json:"stdDev"`
	CoefficientOfVariation float64   `json:"coefficientOfVariation"`
	GMI                    float64   `json:"gmi"` // Glucose Management Indicator, estimated A1C
	TimeInRange            float64   `json:"timeInRange"`
	TimeBelowRange         float64   `json:"timeBelowRange"`
	TimeAboveRange         float64   `json:"timeAboveRange"`
	TargetLow              int       `json:"targetLow"`
	TargetHigh             int       `json:"targetHigh"`
}

// Calculate summarizes readings against the target range in settings.
// An empty history yields a zero Summary carrying only the range.
func Calculate(readings []models.NormalizedReading, settings *models.Settings) *Summary {
	s := &Summary{
		TargetLow:  settings.TargetLow,
		TargetHigh: settings.TargetHigh,
	}
	if len(readings) == 0 {
		return s
	}

	low := float64(settings.TargetLow)
	high := float64(settings.TargetHigh)

	values := make([]float64, 0, len(readings))
	var sum float64
	var inRange, belowRange, aboveRange int

	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)
	from, to := readings[0].TimestampMillis, readings[0].TimestampMillis

	for _, r := range readings {
		v := r.ValueMgDl
		values = append(values, v)
		sum += v

		switch {
		case v < low:
			belowRange++
		case v > high:
			aboveRange++
		default:
			inRange++
		}

		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		if r.TimestampMillis < from {
			from = r.TimestampMillis
		}
		if r.TimestampMillis > to {
			to = r.TimestampMillis
		}
	}

	n := float64(len(readings))
	s.Count = len(readings)
	s.From = time.UnixMilli(from)
	s.To = time.UnixMilli(to)
	s.Mean = sum / n
	s.Median = median(values)

	var sumSq float64
	for _, v := range values {
		diff := v - s.Mean
		sumSq += diff * diff
	}
	s.StdDev = math.Sqrt(sumSq / n)

	s.TimeInRange = float64(inRange) / n * 100
	s.TimeBelowRange = float64(belowRange) / n * 100
	s.TimeAboveRange = float64(aboveRange) / n * 100

	// GMI = 3.31 + 0.02392 × mean glucose (mg/dL)
	s.GMI = 3.31 + 0.02392*s.Mean

	if s.Mean > 0 {
		s.CoefficientOfVariation = (s.StdDev / s.Mean) * 100
	}

	return s
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
