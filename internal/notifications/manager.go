// Package notifications handles desktop glucose alerts
package notifications

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/mrcode/glucoshare/internal/models"
)

// Alert type constants
const (
	alertUrgentLow  = models.StatusUrgentLow
	alertLow        = models.StatusLow
	alertUrgentHigh = models.StatusUrgentHigh
	alertHigh       = models.StatusHigh
	alertStale      = "stale"
)

// Notifier delivers a notification to the user
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends notifications through the OS notification service
type DesktopNotifier struct{}

// Notify sends a desktop notification
func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Manager handles glucose alerts and notifications
type Manager struct {
	settings      *models.Settings
	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
	lastAlertTime map[string]time.Time
	mu            sync.Mutex
}

// NewManager creates a new notification manager. A nil notifier sends
// desktop notifications.
func NewManager(settings *models.Settings, notifier Notifier, logger *slog.Logger) *Manager {
	if notifier == nil {
		notifier = DesktopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		settings:      settings,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
		lastAlertTime: make(map[string]time.Time),
	}
}

// CheckAndNotify checks the glucose status and sends a notification if
// needed. It reports whether a notification was sent.
func (m *Manager) CheckAndNotify(status *models.GlucoseStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alertType := m.shouldAlert(status)
	if alertType == "" {
		// back in range, the next excursion alerts immediately
		if status.Status == models.StatusNormal && !status.IsStale {
			m.lastAlertTime = make(map[string]time.Time)
		}
		return false, nil
	}

	if lastTime, ok := m.lastAlertTime[alertType]; ok {
		if m.settings.RepeatAlertMinutes <= 0 {
			return false, nil
		}
		repeatDuration := time.Duration(m.settings.RepeatAlertMinutes) * time.Minute
		if m.now().Sub(lastTime) < repeatDuration {
			return false, nil
		}
	}

	title, message := m.formatNotification(status, alertType)
	if err := m.notifier.Notify(title, message); err != nil {
		return false, fmt.Errorf("sending %s notification: %w", alertType, err)
	}

	m.logger.Info("glucose alert sent", "alert", alertType, "value", status.Value, "tendency", status.Tendency)
	m.lastAlertTime[alertType] = m.now()
	return true, nil
}

// shouldAlert determines if an alert should be sent. Stale data takes
// precedence since the value can no longer be trusted.
func (m *Manager) shouldAlert(status *models.GlucoseStatus) string {
	if status.IsStale {
		return alertStale
	}

	switch status.Status {
	case alertUrgentLow:
		if m.settings.EnableUrgentLowAlert {
			return alertUrgentLow
		}
	case alertLow:
		if m.settings.EnableLowAlert {
			return alertLow
		}
	case alertUrgentHigh:
		if m.settings.EnableUrgentHighAlert {
			return alertUrgentHigh
		}
	case alertHigh:
		if m.settings.EnableHighAlert {
			return alertHigh
		}
	}
	return ""
}

// formatNotification creates the notification title and message
func (m *Manager) formatNotification(status *models.GlucoseStatus, alertType string) (string, string) {
	var title, message string
	var valueStr string

	if m.settings.Unit == models.UnitMmolL {
		valueStr = fmt.Sprintf("%.1f mmol/L", status.ValueMmol)
	} else {
		valueStr = fmt.Sprintf("%.0f mg/dL", status.Value)
	}

	switch alertType {
	case alertUrgentLow:
		title = "⚠️ URGENT LOW GLUCOSE"
		message = fmt.Sprintf("Glucose is critically low: %s %s", valueStr, status.Trend)
	case alertLow:
		title = "⬇️ Low Glucose"
		message = fmt.Sprintf("Glucose is low: %s %s", valueStr, status.Trend)
	case alertUrgentHigh:
		title = "⚠️ URGENT HIGH GLUCOSE"
		message = fmt.Sprintf("Glucose is critically high: %s %s", valueStr, status.Trend)
	case alertHigh:
		title = "⬆️ High Glucose"
		message = fmt.Sprintf("Glucose is high: %s %s", valueStr, status.Trend)
	case alertStale:
		title = "⏱️ No Recent Glucose Data"
		message = fmt.Sprintf("Last reading %s was %d minutes ago", valueStr, status.StaleMinutes)
	}

	return title, message
}

// ClearAlertState clears the alert state for a specific type or all types
func (m *Manager) ClearAlertState(alertType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alertType == "" {
		m.lastAlertTime = make(map[string]time.Time)
	} else {
		delete(m.lastAlertTime, alertType)
	}
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.notifier.Notify("glucoshare", "Test notification - alerts are working!")
}
