package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newCurrentCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print the latest glucose reading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wireServices(cmd, opts, nil)
			if err != nil {
				return err
			}

			reading, err := svc.glucose.Current(cmd.Context())
			if err != nil {
				return fmt.Errorf("retrieve current reading: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reading)
			}

			if reading == nil {
				_, err := fmt.Fprintln(out, "No glucose reading available.")
				return err
			}

			fmt.Fprintln(out, "Current Glucose Reading:")
			fmt.Fprintf(out, "mg/dL: %s\n", formatValue(reading.ValueMgDl))
			fmt.Fprintf(out, "mmol/L: %s\n", formatValue(reading.ValueMmolL))
			if name := reading.Raw.TrendName(); name != "" {
				fmt.Fprintf(out, "Trend: %s %s\n", reading.Raw.TrendArrow(), name)
			}
			_, err = fmt.Fprintf(out, "Time: %s\n", reading.Time().Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	return cmd
}

// formatValue prints a reading without trailing zeros
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
