package cmd

import (
	"os/signal"
	"syscall"

	"github.com/mrcode/glucoshare/internal/badge"
	"github.com/mrcode/glucoshare/internal/config"
	"github.com/mrcode/glucoshare/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the glucose API, badge and static site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := wireServices(cmd, opts, func(cfg *config.Config) {
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(svc.glucose,
				server.WithWebPassword(svc.cfg.Server.WebPassword),
				server.WithPublicDir(svc.cfg.Server.PublicDir),
				server.WithBadgeRenderer(badge.NewRenderer(&svc.cfg.Settings, svc.cfg.Server.BadgeSize)),
				server.WithGatherer(svc.registry),
				server.WithLogger(svc.logger),
			)

			return srv.Run(ctx, svc.cfg.Addr())
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "Listen port (overrides PORT)")
	return cmd
}
