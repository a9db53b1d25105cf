package models

import "time"

// GlucoseStatus represents the current glucose status for display
type GlucoseStatus struct {
	Value        float64   `json:"value"`        // mg/dL
	ValueMmol    float64   `json:"valueMmol"`    // mmol/L
	Trend        string    `json:"trend"`        // Tendency glyph
	Tendency     string    `json:"tendency"`     // Tendency label
	VendorTrend  string    `json:"vendorTrend"`  // Arrow reported by the sensor
	Time         time.Time `json:"time"`         // Reading time
	Status       string    `json:"status"`       // "normal", "high", "low", "urgent_high", "urgent_low"
	StaleMinutes int       `json:"staleMinutes"` // Minutes since last reading
	IsStale      bool      `json:"isStale"`
}

// NewGlucoseStatus builds the display status for a reading
func NewGlucoseStatus(r *NormalizedReading, tendency, glyph string, settings *Settings, now time.Time) *GlucoseStatus {
	staleMinutes := int(now.Sub(r.Time()).Minutes())

	return &GlucoseStatus{
		Value:        r.ValueMgDl,
		ValueMmol:    r.ValueMmolL,
		Trend:        glyph,
		Tendency:     tendency,
		VendorTrend:  r.Raw.TrendArrow(),
		Time:         r.Time(),
		Status:       settings.GetGlucoseStatus(r.ValueMgDl),
		StaleMinutes: staleMinutes,
		IsStale:      staleMinutes > settings.StaleMinutes,
	}
}
