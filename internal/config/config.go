// Package config loads settings from the environment and an optional file
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrcode/glucoshare/internal/dexcom"
	"github.com/mrcode/glucoshare/internal/models"
	"github.com/spf13/viper"
)

// Keys double as config file keys; each is bound to the upper-case env var
// of the same name.
const (
	keyUsername       = "dexcom_username"
	keyAccountID      = "dexcom_account_id"
	keyPassword       = "dexcom_password"
	keyRegion         = "dexcom_region"
	keyBaseURL        = "dexcom_base_url"
	keySessionRetries = "dexcom_session_retries"
	keyHTTPTimeout    = "http_timeout"
	keyPort           = "port"
	keyWebPassword    = "web_password"
	keyPublicDir      = "public_dir"
	keyBadgeSize      = "badge_size"
	keyHistoryMinutes = "history_minutes"
	keyHistoryCount   = "history_count"
	keyWatchInterval  = "watch_interval"
	keyAlertsEnabled  = "alerts_enabled"
	keyUnit           = "unit"
	keyTargetLow      = "target_low"
	keyTargetHigh     = "target_high"
	keyUrgentLow      = "urgent_low"
	keyUrgentHigh     = "urgent_high"
	keyRepeatAlert    = "repeat_alert_minutes"
	keyStaleMinutes   = "stale_minutes"
	keyLogLevel       = "log_level"
	keyLogFormat      = "log_format"
)

// Config is the full runtime configuration
type Config struct {
	Dexcom   DexcomConfig
	Server   ServerConfig
	History  HistoryConfig
	Watch    WatchConfig
	Settings models.Settings
	Log      LogConfig
}

// DexcomConfig holds Share credentials and client tuning
type DexcomConfig struct {
	Username       string
	AccountID      string
	Password       string
	Region         string
	BaseURL        string // Overrides the region's endpoint when set
	Timeout        time.Duration
	SessionRetries int
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int
	WebPassword string
	PublicDir   string
	BadgeSize   int
}

// HistoryConfig is the snapshot window
type HistoryConfig struct {
	Minutes int
	Count   int
}

// WatchConfig controls the polling loop
type WatchConfig struct {
	Interval      time.Duration
	AlertsEnabled bool
}

// LogConfig controls logger output
type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	defaults := models.DefaultSettings()

	v.SetDefault(keyRegion, dexcom.RegionUS)
	v.SetDefault(keySessionRetries, 1)
	v.SetDefault(keyHTTPTimeout, 30*time.Second)
	v.SetDefault(keyPort, 3000)
	v.SetDefault(keyPublicDir, "public")
	v.SetDefault(keyBadgeSize, 64)
	v.SetDefault(keyHistoryMinutes, 180)
	v.SetDefault(keyHistoryCount, 36)
	v.SetDefault(keyWatchInterval, 5*time.Minute)
	v.SetDefault(keyAlertsEnabled, false)
	v.SetDefault(keyUnit, defaults.Unit)
	v.SetDefault(keyTargetLow, defaults.TargetLow)
	v.SetDefault(keyTargetHigh, defaults.TargetHigh)
	v.SetDefault(keyUrgentLow, defaults.UrgentLow)
	v.SetDefault(keyUrgentHigh, defaults.UrgentHigh)
	v.SetDefault(keyRepeatAlert, defaults.RepeatAlertMinutes)
	v.SetDefault(keyStaleMinutes, defaults.StaleMinutes)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
}

var allKeys = []string{
	keyUsername, keyAccountID, keyPassword, keyRegion, keyBaseURL, keySessionRetries,
	keyHTTPTimeout, keyPort, keyWebPassword, keyPublicDir, keyBadgeSize,
	keyHistoryMinutes, keyHistoryCount, keyWatchInterval, keyAlertsEnabled,
	keyUnit, keyTargetLow, keyTargetHigh, keyUrgentLow, keyUrgentHigh,
	keyRepeatAlert, keyStaleMinutes, keyLogLevel, keyLogFormat,
}

// Load reads configuration from env vars and, when configFile is set, from
// that file. Env vars take precedence over the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)
	for _, key := range allKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	settings := models.DefaultSettings()
	settings.Unit = v.GetString(keyUnit)
	settings.TargetLow = v.GetInt(keyTargetLow)
	settings.TargetHigh = v.GetInt(keyTargetHigh)
	settings.UrgentLow = v.GetInt(keyUrgentLow)
	settings.UrgentHigh = v.GetInt(keyUrgentHigh)
	settings.RepeatAlertMinutes = v.GetInt(keyRepeatAlert)
	settings.StaleMinutes = v.GetInt(keyStaleMinutes)

	return &Config{
		Dexcom: DexcomConfig{
			Username:       strings.TrimSpace(v.GetString(keyUsername)),
			AccountID:      strings.TrimSpace(v.GetString(keyAccountID)),
			Password:       v.GetString(keyPassword),
			Region:         strings.ToLower(strings.TrimSpace(v.GetString(keyRegion))),
			BaseURL:        strings.TrimSpace(v.GetString(keyBaseURL)),
			Timeout:        v.GetDuration(keyHTTPTimeout),
			SessionRetries: v.GetInt(keySessionRetries),
		},
		Server: ServerConfig{
			Port:        v.GetInt(keyPort),
			WebPassword: v.GetString(keyWebPassword),
			PublicDir:   v.GetString(keyPublicDir),
			BadgeSize:   v.GetInt(keyBadgeSize),
		},
		History: HistoryConfig{
			Minutes: v.GetInt(keyHistoryMinutes),
			Count:   v.GetInt(keyHistoryCount),
		},
		Watch: WatchConfig{
			Interval:      v.GetDuration(keyWatchInterval),
			AlertsEnabled: v.GetBool(keyAlertsEnabled),
		},
		Settings: *settings,
		Log: LogConfig{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
		},
	}, nil
}

// Credentials returns the Share credentials
func (c *Config) Credentials() dexcom.Credentials {
	return dexcom.Credentials{
		Username:  c.Dexcom.Username,
		AccountID: c.Dexcom.AccountID,
		Password:  c.Dexcom.Password,
		Region:    c.Dexcom.Region,
	}
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Dexcom.validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.History.Minutes < 1 || c.History.Minutes > dexcom.MaxMinutes {
		return fmt.Errorf("history_minutes must be between 1 and %d, got %d", dexcom.MaxMinutes, c.History.Minutes)
	}
	if c.History.Count < 1 || c.History.Count > dexcom.MaxMaxCount {
		return fmt.Errorf("history_count must be between 1 and %d, got %d", dexcom.MaxMaxCount, c.History.Count)
	}

	if c.Watch.Interval < 30*time.Second {
		return fmt.Errorf("watch_interval must be >= 30s, got %s", c.Watch.Interval)
	}

	return validateSettings(&c.Settings)
}

func (d *DexcomConfig) validate() error {
	if d.Password == "" {
		return errors.New("dexcom_password is required")
	}
	if d.Username == "" && d.AccountID == "" {
		return errors.New("dexcom_username or dexcom_account_id is required")
	}
	if d.Username != "" && d.AccountID != "" {
		return errors.New("dexcom_username and dexcom_account_id are mutually exclusive")
	}
	if _, ok := dexcom.ResolveRegion(d.Region); !ok {
		return fmt.Errorf("dexcom_region %q is not supported", d.Region)
	}
	if d.Timeout <= 0 {
		return errors.New("http_timeout must be > 0")
	}
	if d.SessionRetries < 0 {
		return errors.New("dexcom_session_retries must be >= 0")
	}
	return nil
}

func validateSettings(s *models.Settings) error {
	if s.Unit != models.UnitMgDL && s.Unit != models.UnitMmolL {
		return fmt.Errorf("unit must be %q or %q, got %q", models.UnitMgDL, models.UnitMmolL, s.Unit)
	}
	if s.UrgentLow < 1 {
		return errors.New("urgent_low must be >= 1")
	}
	if !(s.UrgentLow < s.TargetLow && s.TargetLow < s.TargetHigh && s.TargetHigh < s.UrgentHigh) {
		return fmt.Errorf("thresholds must satisfy urgent_low < target_low < target_high < urgent_high, got %d/%d/%d/%d",
			s.UrgentLow, s.TargetLow, s.TargetHigh, s.UrgentHigh)
	}
	if s.RepeatAlertMinutes < 0 {
		return errors.New("repeat_alert_minutes must be >= 0")
	}
	if s.StaleMinutes < 1 {
		return errors.New("stale_minutes must be >= 1")
	}
	return nil
}
