package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/talktime/pkg/config"
	"github.com/dmitrymomot/talktime/pkg/pg"
	"github.com/dmitrymomot/talktime/svc/mongostore"
	"github.com/dmitrymomot/talktime/svc/pgstore"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the ledger schema",
		Long: `migrate applies the PostgreSQL schema or creates the MongoDB indexes,
depending on LEDGER_BACKEND.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.migrate(cmd.Context(), pg.Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest PostgreSQL migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.migrate(cmd.Context(), pg.Down)
			},
		},
	)
	return cmd
}

func (a *app) migrate(ctx context.Context, dir pg.Direction) error {
	switch a.cfg.LedgerBackend {
	case config.BackendPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		version, err := pg.Migrate(ctx, pool, pgstore.Migrations(), pgCfg, dir, a.log)
		if err != nil {
			return err
		}
		a.log.InfoContext(ctx, "schema migrated", slog.String("direction", string(dir)), slog.Int64("version", version))
		return nil

	case config.BackendMongo:
		if dir != pg.Up {
			return fmt.Errorf("%w: mongo indexes can only be created", config.ErrInvalidConfig)
		}
		b, err := connect(ctx, config.App{
			LedgerBackend:  config.BackendMongo,
			SessionBackend: config.BackendMemory,
			MongoDatabase:  a.cfg.MongoDatabase,
		}, a.log)
		if err != nil {
			return err
		}
		defer b.close(context.WithoutCancel(ctx), a.log)

		if err := mongostore.EnsureIndexes(ctx, b.mongoDB); err != nil {
			return err
		}
		a.log.InfoContext(ctx, "mongo indexes ensured", slog.String("database", a.cfg.MongoDatabase))
		return nil

	default:
		a.log.InfoContext(ctx, "nothing to migrate", slog.String("ledger_backend", a.cfg.LedgerBackend))
		return nil
	}
}
