package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/talktime/pkg/config"
	"github.com/dmitrymomot/talktime/pkg/httpserver"
	"github.com/dmitrymomot/talktime/pkg/ratelimiter"
	"github.com/dmitrymomot/talktime/svc/api"
	"github.com/dmitrymomot/talktime/svc/metering"
	"github.com/dmitrymomot/talktime/svc/mongostore"
)

const readinessTimeout = 2 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	b, err := connect(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx), a.log)

	if b.mongoDB != nil {
		if err := mongostore.EnsureIndexes(ctx, b.mongoDB); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := b.service(a.cfg, a.log, metering.WithRegisterer(reg))
	if err != nil {
		return err
	}

	apiOpts := []api.Option{
		api.WithLogger(a.log),
		api.WithEnvironment(a.cfg.Environment()),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		api.WithHealthChecks(readinessTimeout, b.checks...),
	}
	limiter, err := b.limiter()
	if err != nil {
		return err
	}
	if limiter != nil {
		apiOpts = append(apiOpts, api.WithRateLimiter(limiter))
	}
	router := api.NewRouter(svc, apiOpts...)

	a.log.InfoContext(ctx, "starting talktime",
		slog.String("ledger_backend", a.cfg.LedgerBackend),
		slog.String("section_backend", a.cfg.Sections()),
		slog.String("session_backend", a.cfg.SessionBackend),
		slog.String("timezone", a.cfg.Timezone),
	)
	return httpserver.New(httpCfg, router, httpserver.WithLogger(a.log)).Run(ctx)
}

// limiter builds the write throttle, shared through Redis when a client is
// open. It returns nil when RATE_LIMIT_ENABLED is false.
func (b *backends) limiter() (*ratelimiter.Bucket, error) {
	var cfg ratelimiter.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}

	var store ratelimiter.Store
	if b.redis != nil {
		store = ratelimiter.NewRedisStore(b.redis, b.redisPrefix)
	} else {
		mem := ratelimiter.NewMemoryStore()
		b.closers = append(b.closers, func(context.Context) error { return mem.Close() })
		store = mem
	}
	return ratelimiter.NewBucket(store, cfg)
}
