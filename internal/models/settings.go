package models

import "fmt"

// Display units
const (
	UnitMgDL  = "mg/dL"
	UnitMmolL = "mmol/L"
)

// Glucose status values
const (
	StatusUrgentLow  = "urgent_low"
	StatusLow        = "low"
	StatusNormal     = "normal"
	StatusHigh       = "high"
	StatusUrgentHigh = "urgent_high"
)

// Settings contains display and alert settings
type Settings struct {
	Unit string `json:"unit" mapstructure:"unit"` // "mg/dL" or "mmol/L"

	// Glucose thresholds (in mg/dL, converted for display)
	TargetLow  int `json:"targetLow" mapstructure:"target_low"`
	TargetHigh int `json:"targetHigh" mapstructure:"target_high"`
	UrgentLow  int `json:"urgentLow" mapstructure:"urgent_low"`
	UrgentHigh int `json:"urgentHigh" mapstructure:"urgent_high"`

	// Alert settings
	EnableHighAlert       bool `json:"enableHighAlert" mapstructure:"enable_high_alert"`
	EnableLowAlert        bool `json:"enableLowAlert" mapstructure:"enable_low_alert"`
	EnableUrgentHighAlert bool `json:"enableUrgentHighAlert" mapstructure:"enable_urgent_high_alert"`
	EnableUrgentLowAlert  bool `json:"enableUrgentLowAlert" mapstructure:"enable_urgent_low_alert"`
	RepeatAlertMinutes    int  `json:"repeatAlertMinutes" mapstructure:"repeat_alert_minutes"` // 0 = no repeat

	// Readings older than this are shown as stale
	StaleMinutes int `json:"staleMinutes" mapstructure:"stale_minutes"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		Unit: UnitMgDL,

		TargetLow:  70,
		TargetHigh: 180,
		UrgentLow:  55,
		UrgentHigh: 250,

		EnableHighAlert:       true,
		EnableLowAlert:        true,
		EnableUrgentHighAlert: true,
		EnableUrgentLowAlert:  true,
		RepeatAlertMinutes:    15,

		StaleMinutes: 15,
	}
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	clone := *s
	return &clone
}

// GetGlucoseStatus returns the status string for a glucose value
func (s *Settings) GetGlucoseStatus(mgdl float64) string {
	switch {
	case mgdl <= float64(s.UrgentLow):
		return StatusUrgentLow
	case mgdl <= float64(s.TargetLow):
		return StatusLow
	case mgdl >= float64(s.UrgentHigh):
		return StatusUrgentHigh
	case mgdl >= float64(s.TargetHigh):
		return StatusHigh
	default:
		return StatusNormal
	}
}

// FormatValue renders a reading in the configured unit without the unit suffix
func (s *Settings) FormatValue(r *NormalizedReading) string {
	if s.Unit == UnitMmolL {
		return fmt.Sprintf("%.1f", r.ValueMmolL)
	}
	return fmt.Sprintf("%.0f", r.ValueMgDl)
}
