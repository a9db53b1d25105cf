// Package tendency derives a short-term glucose trend from recent readings
package tendency

import (
	"sort"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
)

// Label is the categorical trend name
type Label string

// Trend labels
const (
	NotEnoughData    Label = "Not enough data"
	HighDoubleUp     Label = "High ^^"
	High             Label = "High"
	Rising           Label = "Rising"
	Stable           Label = "Stable"
	Dropping         Label = "Dropping"
	Low              Label = "Low"
	LowTwoArrowsDown Label = "Low two arrows down"
)

const (
	// windowSpan bounds the readings considered at all
	windowSpan = 30 * time.Minute
	// referenceOffset is how far back the comparison reading should be
	referenceOffset = 10 * time.Minute
)

// Result is a trend label with its directional glyph
type Result struct {
	Label Label  `json:"label"`
	Glyph string `json:"glyph"`
}

// Compute derives the trend from an ascending-time history. The most recent
// reading is compared with the first reading at most ten minutes older than
// it, falling back to the oldest reading of the last thirty minutes.
func Compute(history []models.NormalizedReading) Result {
	if len(history) == 0 {
		return Result{Label: NotEnoughData}
	}

	current := history[len(history)-1]

	windowStart := current.TimestampMillis - windowSpan.Milliseconds()
	window := make([]models.NormalizedReading, 0, len(history))
	for _, r := range history {
		if r.TimestampMillis >= windowStart {
			window = append(window, r)
		}
	}

	if len(window) < 2 {
		return Result{Label: NotEnoughData}
	}

	referenceTime := current.TimestampMillis - referenceOffset.Milliseconds()
	reference := window[0]
	for _, r := range window {
		if r.TimestampMillis >= referenceTime {
			reference = r
			break
		}
	}

	return Classify(current.ValueMgDl - reference.ValueMgDl)
}

// Classify maps a mg/dL difference to a trend, first matching rule wins
func Classify(diff float64) Result {
	switch {
	case diff >= 15:
		return Result{Label: HighDoubleUp, Glyph: "↑↑"}
	case diff >= 5:
		return Result{Label: High, Glyph: "↑"}
	case diff > 0:
		return Result{Label: Rising, Glyph: "↗"}
	case diff == 0:
		return Result{Label: Stable, Glyph: "→"}
	case diff > -5:
		return Result{Label: Dropping, Glyph: "↘"}
	case diff > -15:
		return Result{Label: Low, Glyph: "↓"}
	default:
		return Result{Label: LowTwoArrowsDown, Glyph: "↓↓"}
	}
}

// SortAscending orders readings oldest first, keeping the order of equal timestamps
func SortAscending(readings []models.NormalizedReading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].TimestampMillis < readings[j].TimestampMillis
	})
}
