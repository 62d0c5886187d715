package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoPostgres = errors.New("postgres is not configured (POSTGRES_DSN or POSTGRES_HOST)")

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if !cfg.Postgres.Enabled() {
				return errNoPostgres
			}
			pg, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
