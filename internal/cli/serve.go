package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/thrones_api/internal/app/runtime"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr, driver string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.readConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if driver != "" {
				cfg.Storage.Driver = driver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := rootOpts.logger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := runtime.NewApplication(ctx, cfg, log)
			if err != nil {
				return err
			}

			runErr := application.Run(ctx)
			log.Info("shutting down")
			if err := application.Shutdown(context.Background()); err != nil {
				log.WithError(err).Warn("shutdown incomplete")
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override HTTP_ADDR")
	cmd.Flags().StringVar(&driver, "driver", "", "override STORAGE_DRIVER (file|memory|sqlite|postgres)")
	return cmd
}
