package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrcode/glucoshare/internal/config"
	"github.com/mrcode/glucoshare/internal/models"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		alerts   bool
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll Share and print each update, alerting on thresholds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wireServices(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("interval") {
					cfg.Watch.Interval = interval
				}
				if cmd.Flags().Changed("alerts") {
					cfg.Watch.AlertsEnabled = alerts
				}
			})
			if err != nil {
				return err
			}

			glucose := svc.glucose
			out := cmd.OutOrStdout()
			unit := svc.cfg.Settings.Unit

			if once {
				status, err := glucose.Refresh(cmd.Context())
				if err != nil {
					return fmt.Errorf("refresh: %w", err)
				}
				return writeStatus(out, status, unit)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = glucose.Run(ctx, svc.cfg.Watch.Interval, func(status *models.GlucoseStatus, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v (failing since %s)\n", err, sinceText(glucose.LastSuccess()))
					return
				}
				_ = writeStatus(out, status, unit)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Polling interval (>= 30s)")
	cmd.Flags().BoolVar(&alerts, "alerts", false, "Send desktop notifications (overrides ALERTS_ENABLED)")
	cmd.Flags().BoolVar(&once, "once", false, "Refresh once and exit")
	return cmd
}

func writeStatus(w io.Writer, status *models.GlucoseStatus, unit string) error {
	if status == nil {
		_, err := fmt.Fprintln(w, "No glucose reading available.")
		return err
	}

	value := formatValue(status.Value)
	if unit == models.UnitMmolL {
		value = formatValue(status.ValueMmol)
	}

	line := fmt.Sprintf("%s  %s %s  %s %s  %s",
		status.Time.Format(time.Kitchen), value, unit, status.Trend, status.Tendency, status.Status)
	if status.IsStale {
		line += fmt.Sprintf("  (stale, %d min old)", status.StaleMinutes)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func sinceText(t time.Time) string {
	if t.IsZero() {
		return "start"
	}
	return t.Format(time.Kitchen)
}
