package cmd

import (
	"fmt"
	"log/slog"

	"github.com/mrcode/glucoshare/internal/app"
	"github.com/mrcode/glucoshare/internal/config"
	"github.com/mrcode/glucoshare/internal/dexcom"
	"github.com/mrcode/glucoshare/internal/logger"
	"github.com/mrcode/glucoshare/internal/metrics"
	"github.com/mrcode/glucoshare/internal/notifications"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// services is everything a command needs to talk to Share
type services struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	glucose  *app.GlucoseService
}

// wireServices loads and validates configuration, applies command-level
// overrides, then builds the client and service.
func wireServices(cmd *cobra.Command, opts *rootOptions, override func(*config.Config)) (*services, error) {
	cfg, err := config.Load(viper.New(), opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	clientOpts := []dexcom.Option{
		dexcom.WithTimeout(cfg.Dexcom.Timeout),
		dexcom.WithSessionRetries(cfg.Dexcom.SessionRetries),
		dexcom.WithRecorder(collector),
		dexcom.WithLogger(log),
	}
	if cfg.Dexcom.BaseURL != "" {
		clientOpts = append(clientOpts, dexcom.WithBaseURL(cfg.Dexcom.BaseURL))
	}

	client, err := dexcom.NewClient(cfg.Credentials(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create dexcom client: %w", err)
	}

	serviceOpts := []app.Option{
		app.WithWindow(cfg.History.Minutes, cfg.History.Count),
		app.WithSettings(&cfg.Settings),
		app.WithReadingRecorder(collector),
		app.WithLogger(log),
	}
	if cfg.Watch.AlertsEnabled {
		serviceOpts = append(serviceOpts, app.WithAlerter(notifications.NewManager(&cfg.Settings, nil, log)))
	}

	glucose := app.NewGlucoseService(client, serviceOpts...)

	return &services{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		glucose:  glucose,
	}, nil
}
