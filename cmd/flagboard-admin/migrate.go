package main

import (
	"fmt"
	"strings"

	leaderboardqueue "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/queue"
	"github.com/Black-And-White-Club/flagboard/internal/docstore/bunstore"
	docstoremigrations "github.com/Black-And-White-Club/flagboard/internal/docstore/bunstore/migrations"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func (a *admin) migrateCommand() *cli.Command {
	// withMigrator opens the documents database for the duration of fn.
	withMigrator := func(fn func(c *cli.Context, m *migrate.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			if err := a.requirePostgres(); err != nil {
				return err
			}
			store, err := bunstore.Open(c.Context, a.cfg.Postgres.DSN, bunstore.WithLogger(a.obs.Logger))
			if err != nil {
				return err
			}
			defer store.Close()
			return fn(c, migrate.NewMigrator(store.DB(), docstoremigrations.Migrations))
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Init(c.Context); err != nil {
						return fmt.Errorf("failed to initialize migrations: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "Initialized migration tables")
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "apply document store and job queue migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context) //nolint:errcheck

					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "No new document store migrations to run")
					} else {
						fmt.Fprintf(c.App.Writer, "Migrated document store to %s\n", group)
					}

					applied, err := leaderboardqueue.Migrate(c.Context, a.cfg.Postgres.DSN, a.obs.Logger)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Applied %d job queue migrations\n", applied)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last document store migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context) //nolint:errcheck

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "No groups to roll back")
					} else {
						fmt.Fprintf(c.App.Writer, "Rolled back %s\n", group)
					}
					return nil
				}),
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<name words...>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					mf, err := m.CreateGoMigration(c.Context, migrationName(c))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<name words...>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					files, err := m.CreateSQLMigrations(c.Context, migrationName(c))
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Fprintf(c.App.Writer, "Created migration %s (%s)\n", mf.Name, mf.Path)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Migrations: %s\n", ms)
					fmt.Fprintf(c.App.Writer, "  Applied: %s\n", ms.Applied())
					fmt.Fprintf(c.App.Writer, "  Unapplied: %s\n", ms.Unapplied())
					fmt.Fprintf(c.App.Writer, "  Last group: %s\n", ms.LastGroup())
					return nil
				}),
			},
		},
	}
}

func migrationName(c *cli.Context) string {
	return strings.Join(c.Args().Slice(), "_")
}
