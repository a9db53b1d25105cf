package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/mrcode/glucoshare/internal/dexcom"
	"github.com/spf13/cobra"
)

func newRegionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List supported Share regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			regions := dexcom.Regions()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(regions)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REGION\tBASE URL\tAPPLICATION ID")
			for _, r := range regions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Code, r.BaseURL, r.ApplicationID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	return cmd
}
