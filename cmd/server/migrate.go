package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"person-registry/internal/platform/postgres"
)

func newMigrateCmd(envFiles *[]string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand(envFiles, "up", "Apply all pending migrations", func(ctx context.Context, cmd *cobra.Command, m *postgres.Migrator) error {
			return m.Up(ctx)
		}),
		migrateSubcommand(envFiles, "down", "Roll back the latest migration", func(ctx context.Context, cmd *cobra.Command, m *postgres.Migrator) error {
			return m.Down(ctx)
		}),
		migrateSubcommand(envFiles, "status", "List migrations and whether they are applied", printStatus),
	)
	return cmd
}

func migrateSubcommand(envFiles *[]string, use, short string, run func(context.Context, *cobra.Command, *postgres.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closer, err := bootstrap(*envFiles)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := postgres.NewMigrator(db, log)
			if err != nil {
				return err
			}
			return run(ctx, cmd, m)
		},
	}
}

func printStatus(ctx context.Context, cmd *cobra.Command, m *postgres.Migrator) error {
	statuses, err := m.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tFILE")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Path)
	}
	return tw.Flush()
}
