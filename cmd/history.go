package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrcode/glucoshare/internal/app"
	"github.com/mrcode/glucoshare/internal/badge"
	"github.com/mrcode/glucoshare/internal/config"
	"github.com/spf13/cobra"
)

const sparklineRows = 6

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		minutes int
		count   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent readings oldest first with the tendency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wireServices(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("minutes") {
					cfg.History.Minutes = minutes
				}
				if cmd.Flags().Changed("count") {
					cfg.History.Count = count
				}
			})
			if err != nil {
				return err
			}

			snap, err := svc.glucose.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("retrieve history: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			return writeHistory(cmd, snap, svc.cfg.History.Minutes)
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", app.DefaultHistoryMinutes, "Window length in minutes (1-1440)")
	cmd.Flags().IntVar(&count, "count", app.DefaultHistoryCount, "Maximum number of readings (1-288)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	return cmd
}

func writeHistory(cmd *cobra.Command, snap *app.Snapshot, minutes int) error {
	out := cmd.OutOrStdout()

	if len(snap.History) == 0 {
		_, err := fmt.Fprintln(out, "No historical data available.")
		return err
	}

	fmt.Fprintf(out, "Historical Glucose Readings for the last %d minutes:\n", minutes)
	values := make([]float64, 0, len(snap.History))
	for i, r := range snap.History {
		fmt.Fprintf(out, "%d: %s mg/dL (%s mmol/L) at %s\n",
			i+1, formatValue(r.ValueMgDl), formatValue(r.ValueMmolL), r.Time().Format(time.Kitchen))
		values = append(values, r.ValueMgDl)
	}

	fmt.Fprintf(out, "Tendency: %s %s\n", snap.Tendency, snap.VisualTendency)

	if chart := badge.Sparkline(values, sparklineRows); chart != "" {
		fmt.Fprintln(out, chart)
	}
	return nil
}
