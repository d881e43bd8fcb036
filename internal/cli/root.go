// Package cli implements the thrones-api command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/R3E-Network/thrones_api/internal/config"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	LogLevel string
}

// readConfig merges .env, CONFIG_FILE and the environment and applies the
// global flag overrides. Validation is left to the caller.
func (o *RootOptions) readConfig() (*config.Config, error) {
	cfg, err := config.Read(o.EnvFile)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	return cfg, nil
}

func (o *RootOptions) logger(cfg *config.Config) *logging.Logger {
	return logging.New("thrones-api", cfg.Logging.Level, cfg.Logging.Format)
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "thrones-api",
		Short:         "Game of Thrones character API",
		Long:          "Serves a token-protected REST API over a collection of Game of Thrones characters.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewImportUsersCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
