package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the SQL files at the root of fsys in the given direction
// and returns the resulting schema version. Down rolls back one migration.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, cfg Config, dir Direction, log *slog.Logger) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: log})
	if cfg.MigrationsTable != "" {
		goose.SetTableName(cfg.MigrationsTable)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}

	var err error
	switch dir {
	case Up:
		err = goose.UpContext(ctx, db, ".")
	case Down:
		err = goose.DownContext(ctx, db, ".")
	default:
		err = fmt.Errorf("unknown direction %q", dir)
	}
	if err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, errors.Join(ErrFailedToApplyMigrations, err)
	}
	return version, nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}
