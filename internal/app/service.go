// Package app assembles glucose snapshots and drives the polling loop
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcode/glucoshare/internal/models"
	"github.com/mrcode/glucoshare/internal/stats"
	"github.com/mrcode/glucoshare/internal/tendency"
)

// Default snapshot window
const (
	DefaultHistoryMinutes = 180
	DefaultHistoryCount   = 36
)

// Fetcher retrieves raw readings. *dexcom.Client satisfies it.
type Fetcher interface {
	FetchReadings(ctx context.Context, minutes, maxCount int) ([]models.RawReading, error)
	FetchCurrent(ctx context.Context) (*models.RawReading, error)
}

// Alerter raises notifications for a glucose status
type Alerter interface {
	CheckAndNotify(status *models.GlucoseStatus) (bool, error)
}

// ReadingRecorder receives the latest reading for metrics
type ReadingRecorder interface {
	RecordReading(mgdl float64, at time.Time)
}

// Snapshot is the current reading, its tendency and the ascending history
type Snapshot struct {
	Current        *models.NormalizedReading  `json:"current"`
	Tendency       string                     `json:"tendency"`
	VisualTendency string                     `json:"visualTendency"`
	History        []models.NormalizedReading `json:"history"`
}

// GlucoseService builds snapshots from a Fetcher and tracks the last result
type GlucoseService struct {
	fetcher  Fetcher
	settings *models.Settings
	minutes  int
	count    int
	alerter  Alerter
	recorder ReadingRecorder
	logger   *slog.Logger
	now      func() time.Time

	mu                sync.RWMutex
	lastSnapshot      *Snapshot
	lastSuccessTime   time.Time
	consecutiveErrors int
}

// Option configures a GlucoseService
type Option func(*GlucoseService)

// WithWindow sets the snapshot window
func WithWindow(minutes, count int) Option {
	return func(s *GlucoseService) {
		if minutes > 0 {
			s.minutes = minutes
		}
		if count > 0 {
			s.count = count
		}
	}
}

// WithSettings sets the thresholds and display unit
func WithSettings(settings *models.Settings) Option {
	return func(s *GlucoseService) {
		if settings != nil {
			s.settings = settings
		}
	}
}

// WithAlerter enables alerts on every Refresh
func WithAlerter(a Alerter) Option {
	return func(s *GlucoseService) {
		s.alerter = a
	}
}

// WithReadingRecorder reports each new reading
func WithReadingRecorder(r ReadingRecorder) Option {
	return func(s *GlucoseService) {
		s.recorder = r
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *GlucoseService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *GlucoseService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGlucoseService creates a service reading from fetcher
func NewGlucoseService(fetcher Fetcher, opts ...Option) *GlucoseService {
	s := &GlucoseService{
		fetcher:  fetcher,
		settings: models.DefaultSettings(),
		minutes:  DefaultHistoryMinutes,
		count:    DefaultHistoryCount,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the service settings
func (s *GlucoseService) Settings() *models.Settings {
	return s.settings
}

// Snapshot fetches the default window
func (s *GlucoseService) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.SnapshotWindow(ctx, s.minutes, s.count)
}

// SnapshotWindow fetches, normalizes and sorts readings for a window and
// computes the tendency. History is never nil.
func (s *GlucoseService) SnapshotWindow(ctx context.Context, minutes, count int) (*Snapshot, error) {
	raws, err := s.fetcher.FetchReadings(ctx, minutes, count)
	if err != nil {
		return nil, err
	}

	history, err := models.NormalizeAll(raws)
	if err != nil {
		return nil, fmt.Errorf("normalizing readings: %w", err)
	}
	tendency.SortAscending(history)

	snap := &Snapshot{History: history}
	if len(history) > 0 {
		current := history[len(history)-1]
		snap.Current = &current
	}

	trend := tendency.Compute(history)
	snap.Tendency = string(trend.Label)
	snap.VisualTendency = trend.Glyph

	if snap.Current != nil && s.recorder != nil {
		s.recorder.RecordReading(snap.Current.ValueMgDl, snap.Current.Time())
	}

	return snap, nil
}

// Current returns the latest reading of the last ten minutes, nil if none
func (s *GlucoseService) Current(ctx context.Context) (*models.NormalizedReading, error) {
	raw, err := s.fetcher.FetchCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	reading, err := models.Normalize(*raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing reading: %w", err)
	}
	return &reading, nil
}

// Stats summarizes the default window
func (s *GlucoseService) Stats(ctx context.Context) (*stats.Summary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Calculate(snap.History, s.settings), nil
}

// Status builds the display status for a snapshot, nil without a current reading
func (s *GlucoseService) Status(snap *Snapshot) *models.GlucoseStatus {
	if snap == nil || snap.Current == nil {
		return nil
	}
	return models.NewGlucoseStatus(snap.Current, snap.Tendency, snap.VisualTendency, s.settings, s.now())
}

// LastSnapshot returns the most recent successful Refresh result
func (s *GlucoseService) LastSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

// LastSuccess returns when Refresh last succeeded, zero if never
func (s *GlucoseService) LastSuccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccessTime
}

// ConsecutiveErrors returns how many Refresh calls failed in a row
func (s *GlucoseService) ConsecutiveErrors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveErrors
}

// Refresh takes a snapshot and runs alerts on the resulting status. When the
// fetch fails, the last known status is aged and alerted on instead, so
// missing data surfaces as a stale alert.
func (s *GlucoseService) Refresh(ctx context.Context) (*models.GlucoseStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.mu.Lock()
		s.consecutiveErrors++
		errorCount := s.consecutiveErrors
		last := s.lastSnapshot
		s.mu.Unlock()

		s.logger.Error("fetching glucose data failed", "attempt", errorCount, "error", err)

		if status := s.Status(last); status != nil {
			s.alert(status)
		}
		return nil, err
	}

	s.mu.Lock()
	s.consecutiveErrors = 0
	s.lastSuccessTime = s.now()
	if snap.Current != nil {
		s.lastSnapshot = snap
	}
	last := s.lastSnapshot
	s.mu.Unlock()

	// an empty window keeps the previous reading, which ages into stale
	status := s.Status(last)
	if status == nil {
		s.logger.Info("no glucose readings available")
		return nil, nil
	}

	s.logger.Debug("glucose updated", "value", status.Value, "tendency", status.Tendency, "status", status.Status)
	s.alert(status)

	return status, nil
}

func (s *GlucoseService) alert(status *models.GlucoseStatus) {
	if s.alerter == nil {
		return
	}
	if _, err := s.alerter.CheckAndNotify(status); err != nil {
		s.logger.Warn("notification error", "error", err)
	}
}

// Run refreshes immediately and then every interval until ctx is done.
// onUpdate, if set, receives each result.
func (s *GlucoseService) Run(ctx context.Context, interval time.Duration, onUpdate func(*models.GlucoseStatus, error)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := func() {
		status, err := s.Refresh(ctx)
		if onUpdate != nil {
			onUpdate(status, err)
		}
	}

	refresh()
	for {
		select {
		case <-ticker.C:
			refresh()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
