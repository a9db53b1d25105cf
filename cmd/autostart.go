package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/mrcode/glucoshare/internal/autostart"
	"github.com/spf13/cobra"
)

func newAutostartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Run the alerting watch loop at login",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start 'watch --alerts' at login",
			RunE: func(cmd *cobra.Command, _ []string) error {
				entry, err := watchEntry(opts)
				if err != nil {
					return err
				}
				if err := autostart.Enable(entry); err != nil {
					return fmt.Errorf("enable autostart: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "autostart enabled")
				return err
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting at login",
			RunE: func(cmd *cobra.Command, _ []string) error {
				entry, err := watchEntry(opts)
				if err != nil {
					return err
				}
				if err := autostart.Disable(entry); err != nil {
					return fmt.Errorf("disable autostart: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether autostart is enabled",
			RunE: func(cmd *cobra.Command, _ []string) error {
				entry, err := watchEntry(opts)
				if err != nil {
					return err
				}
				enabled, err := autostart.IsEnabled(entry)
				if err != nil {
					return fmt.Errorf("check autostart: %w", err)
				}
				state := "disabled"
				if enabled {
					state = "enabled"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", state)
				return err
			},
		},
	)

	return cmd
}

func watchEntry(opts *rootOptions) (autostart.Entry, error) {
	args := []string{"watch", "--alerts"}
	if opts.configFile != "" {
		path, err := filepath.Abs(opts.configFile)
		if err != nil {
			return autostart.Entry{}, fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", path)
	}
	return autostart.NewEntry("glucoshare", "glucoshare", "Dexcom Share glucose alerts", args...)
}
