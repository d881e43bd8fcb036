package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/thrones_api/internal/platform/migrations"
)

// NewMigrateCommand creates the migrate command with up, down and version
// subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dsn string

	resolve := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		cfg, err := rootOpts.readConfig()
		if err != nil {
			return "", err
		}
		if cfg.Storage.PostgresDSN == "" {
			return "", fmt.Errorf("POSTGRES_DSN or --dsn is required")
		}
		return cfg.Storage.PostgresDSN, nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "override POSTGRES_DSN")

	step := func(use, short string, run func(string) error, done string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				target, err := resolve()
				if err != nil {
					return err
				}
				if err := run(target); err != nil {
					return err
				}
				NewPrinter(cmd.OutOrStdout()).Success("%s", done)
				return nil
			},
		}
	}

	cmd.AddCommand(step("up", "Apply all pending migrations", migrations.Up, "schema is up to date"))
	cmd.AddCommand(step("down", "Revert all migrations", migrations.Down, "schema removed"))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			version, dirty, ok, err := migrations.Version(target)
			if err != nil {
				return err
			}
			out := NewPrinter(cmd.OutOrStdout())
			switch {
			case !ok:
				out.Info("no migrations applied")
			case dirty:
				out.Warning("version %d (dirty)", version)
			default:
				out.Info("version %d", version)
			}
			return nil
		},
	})
	return cmd
}
