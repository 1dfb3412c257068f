package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is not set, migrations need postgres")

func newMigrateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, rt, func(m *postgres.Migrator) error {
					n, err := m.Migrate(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest applied migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, rt, func(m *postgres.Migrator) error {
					if err := m.Rollback(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "rolled back latest migration")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, rt, func(m *postgres.Migrator) error {
					list, err := m.Status(cmd.Context())
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
					for _, mig := range list {
						applied := "-"
						if mig.IsApplied {
							applied = mig.AppliedAt.Format("2006-01-02 15:04:05")
						}
						fmt.Fprintf(tw, "%03d\t%s\t%s\n", mig.Version, mig.Name, applied)
					}
					return tw.Flush()
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, rt *runtime, fn func(*postgres.Migrator) error) error {
	if rt.cfg.UsesMemoryStore() {
		return errNoDatabase
	}

	conn, err := connectDatabase(cmd.Context(), rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(postgres.NewMigrator(conn))
}
