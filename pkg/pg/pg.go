// Package pg opens pgx connection pools, applies goose migrations and
// classifies PostgreSQL errors.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds pool and migration settings loaded from PG_* variables.
// Zero pool settings keep pgx's defaults.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"2s"`

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}

var (
	ErrFailedToParseDBConfig    = errors.New("pg.errors.parse_config")
	ErrFailedToOpenDBConnection = errors.New("pg.errors.open_connection")
	ErrHealthcheckFailed        = errors.New("pg.errors.healthcheck_failed")
	ErrFailedToApplyMigrations  = errors.New("pg.errors.apply_migrations")
)

// Connect opens a pool and pings it, retrying with a linearly growing pause.
// It gives up early when ctx is done.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}

// PoolConfig parses the connection string and applies the positive pool
// settings of cfg on top of pgx's defaults.
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = min(cfg.MaxIdleConns, poolCfg.MaxConns)
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return poolCfg, nil
}

// Healthcheck pings the pool.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// IsNotFoundError reports a query that returned no rows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique violation (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
