package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jkindrix/fitai/internal/config"
	"github.com/jkindrix/fitai/internal/database"
)

func (a *app) migrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending lead store migrations",
		Long: `Apply every pending schema migration to the postgres lead store.
The sqlite driver creates its schema when the file is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, store, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.Storage.Driver != config.DriverPostgres {
				fmt.Fprintf(out, "storage driver %s has no migrations; schema is up to date\n", cfg.Storage.Driver)
				return nil
			}

			logger, err := a.logger()
			if err != nil {
				return err
			}
			m := database.NewMigrator(store.DB.Pool, logger)

			if statusOnly {
				pending, err := m.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "no pending migrations")
					return nil
				}
				for _, mig := range pending {
					fmt.Fprintf(out, "pending  %03d  %s\n", mig.Version, mig.Filename)
				}
				return nil
			}

			applied, err := m.Migrate(ctx)
			if err != nil {
				return err
			}
			for _, mig := range applied {
				fmt.Fprintf(out, "applied  %03d  %s\n", mig.Version, mig.Filename)
			}
			fmt.Fprintf(out, "%d migration(s) applied\n", len(applied))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "List pending migrations without applying them")
	return cmd
}
