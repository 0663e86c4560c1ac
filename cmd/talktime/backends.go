package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	gomongo "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/talktime/pkg/config"
	"github.com/dmitrymomot/talktime/pkg/httpserver"
	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/mongo"
	"github.com/dmitrymomot/talktime/pkg/onboarding"
	"github.com/dmitrymomot/talktime/pkg/pg"
	"github.com/dmitrymomot/talktime/pkg/redis"
	"github.com/dmitrymomot/talktime/pkg/section"
	"github.com/dmitrymomot/talktime/pkg/session"
	"github.com/dmitrymomot/talktime/pkg/subscription"
	"github.com/dmitrymomot/talktime/pkg/usage"
	"github.com/dmitrymomot/talktime/svc/metering"
	"github.com/dmitrymomot/talktime/svc/mongostore"
	"github.com/dmitrymomot/talktime/svc/pgstore"
	"github.com/dmitrymomot/talktime/svc/redisstore"
)

const memorySessionSweep = time.Minute

// backends holds the open connections and the stores built on them.
type backends struct {
	stores metering.Stores
	checks []httpserver.Check

	pool        *pgxpool.Pool
	redis       *goredis.Client
	redisPrefix string
	mongo       *gomongo.Client
	mongoDB     *gomongo.Database
	closers     []func(context.Context) error
}

// connect opens every backend cfg selects. Only the selected backends'
// settings are loaded from the environment.
func connect(ctx context.Context, cfg config.App, log *slog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.close(context.WithoutCancel(ctx), log)
		}
	}()

	if cfg.Uses(config.BackendPostgres) {
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.checks = append(b.checks, httpserver.Check{Name: config.BackendPostgres, Check: pg.Healthcheck(pool)})
		b.closers = append(b.closers, func(context.Context) error { pool.Close(); return nil })
	}

	if cfg.Uses(config.BackendRedis) {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		b.redis = client
		b.redisPrefix = redisCfg.KeyPrefix
		b.checks = append(b.checks, httpserver.Check{Name: config.BackendRedis, Check: redis.Healthcheck(client)})
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
	}

	if cfg.Uses(config.BackendMongo) {
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, err
		}
		client, err := mongo.Connect(ctx, mongoCfg)
		if err != nil {
			return nil, err
		}
		b.mongo = client
		b.mongoDB = client.Database(cfg.MongoDatabase)
		b.checks = append(b.checks, httpserver.Check{Name: config.BackendMongo, Check: mongo.Healthcheck(client)})
		b.closers = append(b.closers, client.Disconnect)
	}

	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		b.stores.Subscriptions = pgstore.NewSubscriptions(b.pool)
		b.stores.Usage = pgstore.NewUsage(b.pool)
		b.stores.Onboarding = pgstore.NewOnboarding(b.pool)
		b.stores.Profiles = pgstore.NewProfiles(b.pool)
	case config.BackendMongo:
		b.stores.Subscriptions = mongostore.NewSubscriptions(b.mongoDB)
		b.stores.Usage = mongostore.NewUsage(b.mongoDB)
		b.stores.Onboarding = mongostore.NewOnboarding(b.mongoDB)
		b.stores.Profiles = mongostore.NewProfiles(b.mongoDB)
	case config.BackendMemory:
		b.stores.Subscriptions = subscription.NewMemoryStore()
		b.stores.Usage = usage.NewMemoryStore()
		b.stores.Onboarding = onboarding.NewMemoryStore()
		b.stores.Profiles = onboarding.NewMemoryProfileStore()
	}

	switch cfg.Sections() {
	case config.BackendPostgres:
		b.stores.Sections = pgstore.NewSections(b.pool)
	case config.BackendMongo:
		b.stores.Sections = mongostore.NewSections(b.mongoDB)
	case config.BackendRedis:
		b.stores.Sections = redisstore.NewSections(b.redis, b.redisPrefix)
	case config.BackendMemory:
		b.stores.Sections = section.NewMemoryStore()
	}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		b.stores.Sessions = redisstore.NewSessions(b.redis, b.redisPrefix)
	case config.BackendMemory:
		sessions := session.NewMemoryStore(session.WithCleanupInterval(memorySessionSweep))
		b.stores.Sessions = sessions
		b.closers = append(b.closers, func(context.Context) error { return sessions.Close() })
	}

	if cfg.LedgerBackend == config.BackendMemory || cfg.SessionBackend == config.BackendMemory {
		log.WarnContext(ctx, "memory stores selected, usage is lost on restart",
			slog.String("ledger_backend", cfg.LedgerBackend),
			slog.String("session_backend", cfg.SessionBackend),
		)
	}
	return b, nil
}

// service builds the metering service over the open backends.
func (b *backends) service(cfg config.App, log *slog.Logger, opts ...metering.Option) (*metering.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts = append([]metering.Option{
		metering.WithLocation(loc),
		metering.WithSessionTTL(cfg.SessionTTL),
		metering.WithMaxSessionDuration(cfg.MaxSessionDuration),
		metering.WithLogger(log),
	}, opts...)
	return metering.NewService(b.stores, opts...), nil
}

// close releases connections in reverse order of opening.
func (b *backends) close(ctx context.Context, log *slog.Logger) {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		log.ErrorContext(ctx, "close backends", logger.Error(err))
	}
}
