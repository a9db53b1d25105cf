package notifications

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
)

// Test constants
const (
	testUrgentLow = "urgent_low"
	testMmolUnit  = "mmol/L"
)

type recordingNotifier struct {
	titles   []string
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(title, message string) error {
	if n.err != nil {
		return n.err
	}
	n.titles = append(n.titles, title)
	n.messages = append(n.messages, message)
	return nil
}

func newTestManager(settings *models.Settings) (*Manager, *recordingNotifier) {
	notifier := &recordingNotifier{}
	manager := NewManager(settings, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return manager, notifier
}

func TestManager_shouldAlert(t *testing.T) {
	manager, _ := newTestManager(models.DefaultSettings())

	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"Urgent low enabled", "urgent_low", "urgent_low"},
		{"Low enabled", "low", "low"},
		{"High enabled", "high", "high"},
		{"Urgent high enabled", "urgent_high", "urgent_high"},
		{"Normal", "normal", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := &models.GlucoseStatus{Status: tt.status}
			result := manager.shouldAlert(status)
			if result != tt.expected {
				t.Errorf("shouldAlert() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestManager_shouldAlert_Disabled(t *testing.T) {
	settings := models.DefaultSettings()
	settings.EnableLowAlert = false
	settings.EnableHighAlert = false
	manager, _ := newTestManager(settings)

	status := &models.GlucoseStatus{Status: "low"}
	result := manager.shouldAlert(status)
	if result != "" {
		t.Errorf("shouldAlert() = %s, want empty (disabled)", result)
	}

	status = &models.GlucoseStatus{Status: "high"}
	result = manager.shouldAlert(status)
	if result != "" {
		t.Errorf("shouldAlert() = %s, want empty (disabled)", result)
	}

	status = &models.GlucoseStatus{Status: testUrgentLow}
	result = manager.shouldAlert(status)
	if result != testUrgentLow {
		t.Errorf("shouldAlert() = %s, want %s", result, testUrgentLow)
	}
}

func TestManager_shouldAlert_Stale(t *testing.T) {
	manager, _ := newTestManager(models.DefaultSettings())

	status := &models.GlucoseStatus{Status: "normal", IsStale: true}
	if result := manager.shouldAlert(status); result != alertStale {
		t.Errorf("shouldAlert() = %s, want %s", result, alertStale)
	}
}

func TestManager_formatNotification(t *testing.T) {
	manager, _ := newTestManager(models.DefaultSettings())

	tests := []struct {
		alertType     string
		expectedTitle string
	}{
		{"urgent_low", "⚠️ URGENT LOW GLUCOSE"},
		{"low", "⬇️ Low Glucose"},
		{"high", "⬆️ High Glucose"},
		{"urgent_high", "⚠️ URGENT HIGH GLUCOSE"},
		{"stale", "⏱️ No Recent Glucose Data"},
	}

	status := &models.GlucoseStatus{
		Value:     100,
		ValueMmol: 5.5,
		Trend:     "→",
	}

	for _, tt := range tests {
		t.Run(tt.alertType, func(t *testing.T) {
			title, _ := manager.formatNotification(status, tt.alertType)
			if title != tt.expectedTitle {
				t.Errorf("title = %s, want %s", title, tt.expectedTitle)
			}
		})
	}
}

func TestManager_formatNotification_Units(t *testing.T) {
	status := &models.GlucoseStatus{
		Value:     100,
		ValueMmol: 5.5,
		Trend:     "→",
	}

	manager, _ := newTestManager(models.DefaultSettings())
	_, message := manager.formatNotification(status, "low")
	if !strings.Contains(message, "100 mg/dL") {
		t.Errorf("Message should contain mg/dL value, got: %s", message)
	}

	settings := models.DefaultSettings()
	settings.Unit = testMmolUnit
	manager, _ = newTestManager(settings)
	_, message = manager.formatNotification(status, "low")
	if !strings.Contains(message, "5.5") {
		t.Errorf("Message should contain mmol/L value, got: %s", message)
	}
}

func TestManager_CheckAndNotify_Repeat(t *testing.T) {
	manager, notifier := newTestManager(models.DefaultSettings())
	now := time.UnixMilli(1691455258000)
	manager.now = func() time.Time { return now }

	status := &models.GlucoseStatus{Value: 60, Status: "low", Trend: "↓"}

	sent, err := manager.CheckAndNotify(status)
	if err != nil || !sent {
		t.Fatalf("CheckAndNotify() = %v, %v, want sent", sent, err)
	}

	now = now.Add(5 * time.Minute)
	if sent, _ := manager.CheckAndNotify(status); sent {
		t.Error("alert should be suppressed within the repeat window")
	}

	now = now.Add(10 * time.Minute)
	if sent, _ := manager.CheckAndNotify(status); !sent {
		t.Error("alert should repeat after 15 minutes")
	}

	if len(notifier.titles) != 2 {
		t.Errorf("notifications = %d, want 2", len(notifier.titles))
	}
}

func TestManager_CheckAndNotify_NoRepeat(t *testing.T) {
	settings := models.DefaultSettings()
	settings.RepeatAlertMinutes = 0
	manager, notifier := newTestManager(settings)
	now := time.UnixMilli(1691455258000)
	manager.now = func() time.Time { return now }

	low := &models.GlucoseStatus{Value: 60, Status: "low"}
	normal := &models.GlucoseStatus{Value: 110, Status: "normal"}

	_, _ = manager.CheckAndNotify(low)
	now = now.Add(time.Hour)
	_, _ = manager.CheckAndNotify(low)
	if len(notifier.titles) != 1 {
		t.Fatalf("notifications = %d, want 1 while status is unchanged", len(notifier.titles))
	}

	_, _ = manager.CheckAndNotify(normal)
	_, _ = manager.CheckAndNotify(low)
	if len(notifier.titles) != 2 {
		t.Errorf("notifications = %d, want 2 after returning to range", len(notifier.titles))
	}
}

func TestManager_CheckAndNotify_Error(t *testing.T) {
	manager, notifier := newTestManager(models.DefaultSettings())
	notifier.err = errors.New("no notification daemon")

	sent, err := manager.CheckAndNotify(&models.GlucoseStatus{Status: "high"})
	if err == nil || sent {
		t.Fatalf("CheckAndNotify() = %v, %v, want error", sent, err)
	}
	if _, ok := manager.lastAlertTime["high"]; ok {
		t.Error("failed alert should not be recorded")
	}
}

func TestManager_ClearAlertState(t *testing.T) {
	manager, _ := newTestManager(models.DefaultSettings())

	manager.lastAlertTime["low"] = time.Now()
	manager.lastAlertTime["high"] = time.Now()

	manager.ClearAlertState("low")
	if _, ok := manager.lastAlertTime["low"]; ok {
		t.Error("low alert should be cleared")
	}
	if _, ok := manager.lastAlertTime["high"]; !ok {
		t.Error("high alert should still exist")
	}

	manager.lastAlertTime["low"] = time.Now()
	manager.ClearAlertState("")
	if len(manager.lastAlertTime) != 0 {
		t.Error("All alerts should be cleared")
	}
}

func TestManager_SendTestNotification(t *testing.T) {
	manager, notifier := newTestManager(models.DefaultSettings())

	if err := manager.SendTestNotification(); err != nil {
		t.Fatalf("SendTestNotification() error = %v", err)
	}
	if len(notifier.titles) != 1 || notifier.titles[0] != "glucoshare" {
		t.Errorf("titles = %v", notifier.titles)
	}
}
