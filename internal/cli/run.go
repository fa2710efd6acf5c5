package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wemix/lagwatch/internal/api"
)

// NewRunCommand creates the run command
func NewRunCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor until interrupted",
		Long: `Run checks the node once per interval until SIGINT or SIGTERM.
The status API is started as well when api.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, "")
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.API.Enabled {
				server := api.NewServer(cfg.API, a.monitor, a.metrics, Version, log.Named("api"))
				if err := server.Start(); err != nil {
					return err
				}
				defer func() {
					if err := server.Stop(context.Background()); err != nil {
						log.Warn("API server shutdown failed", zap.Error(err))
					}
				}()
			}

			return a.monitor.Run(ctx)
		},
	}

	return cmd
}
