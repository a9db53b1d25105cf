package cmd

import (
	"fmt"

	"github.com/mrcode/glucoshare/internal/logger"
	"github.com/mrcode/glucoshare/internal/models"
	"github.com/mrcode/glucoshare/internal/notifications"
	"github.com/spf13/cobra"
)

func newTestAlertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-alert",
		Short: "Send a test desktop notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(cmd.ErrOrStderr(), opts.logLevel, logger.FormatText)
			manager := notifications.NewManager(models.DefaultSettings(), nil, log)
			if err := manager.SendTestNotification(); err != nil {
				return fmt.Errorf("send notification: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "notification sent")
			return err
		},
	}
}
