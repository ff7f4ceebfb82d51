package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	pgadapter "github.com/lborres/kontak/adapters/pgx"
	"github.com/lborres/kontak/pkg/cli/config"
	"github.com/lborres/kontak/pkg/logging"
	"github.com/lborres/kontak/services"
)

func cmdMigrate() *cli.Command {
	var dbCfg config.Database
	var dryRun bool

	flags := dbCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "List pending migrations without applying them",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Apply pending database migrations",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)
			logger.Info("migrate configuration", "database", dbCfg, "dryRun", dryRun)

			pool, err := dbCfg.Connect(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to connect database")
			}
			defer pool.Close()

			migrator, err := services.NewMigrator(pgadapter.New(pool), pgadapter.Migrations())
			if err != nil {
				return err
			}

			if dryRun {
				pending, err := migrator.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					logger.Info("No pending migrations")
					return nil
				}
				for _, m := range pending {
					logger.Info("Pending migration", "version", m.Version, "name", m.Name)
				}
				return nil
			}

			results, err := migrator.Run(ctx)
			for _, r := range results {
				if r.Err != nil {
					logger.Error("Migration failed", "migration", r.Migration.String(), "error", r.Err)
					continue
				}
				logger.Info("Migration result", "migration", r.Migration.String(), "outcome", r.Outcome.String())
			}
			if err != nil {
				return goerr.Wrap(err, "migration run aborted")
			}
			return nil
		},
	}
}
