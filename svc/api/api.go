// Package api exposes the metering service over HTTP.
//
// The caller is identified by the X-User-ID header, which the upstream
// authentication layer sets after verifying the user's credentials. Every
// response uses the same envelope:
//
//	{"data": ..., "error": {"code": "...", "message": "...", "details": ...}}
//
// Admission refusals are answered with 429 and carry the limit, used and
// remaining numbers in error.details.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/clientip"
	"github.com/dmitrymomot/talktime/pkg/environment"
	"github.com/dmitrymomot/talktime/pkg/httpserver"
	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/ratelimiter"
	"github.com/dmitrymomot/talktime/pkg/requestid"
	"github.com/dmitrymomot/talktime/pkg/session"
	"github.com/dmitrymomot/talktime/svc/metering"
)

// Metering is the part of metering.Service the API serves.
type Metering interface {
	StartSession(ctx context.Context, userID uuid.UUID, activity quota.Activity) (*session.Grant, error)
	EndSession(ctx context.Context, userID, sessionID uuid.UUID, activity quota.Activity, seconds int64) (*session.Receipt, error)
	StartFreeTrial(ctx context.Context, userID uuid.UUID) (*metering.TrialResult, error)
	CanStartFreeTrial(ctx context.Context, userID uuid.UUID) (bool, error)
	GetUsageStatus(ctx context.Context, userID uuid.UUID) (*metering.UsageStatus, error)
	GetRemainingTime(ctx context.Context, userID uuid.UUID) (*metering.RemainingTime, error)
	CheckScenarioLimit(ctx context.Context, userID uuid.UUID) (*quota.CountQuota, error)
	RecordScenarioCreation(ctx context.Context, userID uuid.UUID) (*quota.CountQuota, error)
	CheckRoleplaySectionLimit(ctx context.Context, userID uuid.UUID, section string) (*metering.SectionQuota, error)
	RecordRoleplaySession(ctx context.Context, userID uuid.UUID, section string) (*metering.SectionQuota, error)
}

// Limiter throttles write requests per user.
type Limiter interface {
	Allow(ctx context.Context, key string) (*ratelimiter.Result, error)
}

type options struct {
	log          *slog.Logger
	limiter      Limiter
	env          environment.Environment
	metrics      http.Handler
	checks       []httpserver.Check
	checkTimeout time.Duration
	maxBodyBytes int64
	accessLog    bool
}

// Option configures the router.
type Option func(*options)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithEnvironment stores env in every request context.
func WithEnvironment(env environment.Environment) Option {
	return func(o *options) { o.env = env }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithHealthChecks makes /healthz a readiness probe over checks.
func WithHealthChecks(timeout time.Duration, checks ...httpserver.Check) Option {
	return func(o *options) {
		o.checkTimeout = timeout
		o.checks = append(o.checks, checks...)
	}
}

// WithRateLimiter throttles the POST endpoints per user.
func WithRateLimiter(l Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithRequestLog toggles the per-request access log line.
func WithRequestLog(enabled bool) Option {
	return func(o *options) { o.accessLog = enabled }
}

// NewRouter builds the HTTP handler. Panics on a nil service.
func NewRouter(svc Metering, opts ...Option) http.Handler {
	if svc == nil {
		panic("api: metering service is required")
	}
	o := &options{
		log:          logger.Nop(),
		env:          environment.Development,
		checkTimeout: 2 * time.Second,
		maxBodyBytes: 1 << 16,
		accessLog:    true,
	}
	for _, opt := range opts {
		opt(o)
	}

	h := &handlers{svc: svc, log: o.log.With(logger.Component("api")), maxBodyBytes: o.maxBodyBytes}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware())
	r.Use(environment.Middleware(o.env))
	if o.accessLog {
		r.Use(accessLog(h.log))
	}
	r.Use(recoverer(h.log))

	r.Get("/healthz", httpserver.HealthHandler(h.log, o.checkTimeout, o.checks...))
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.NoCache)
		r.Use(identify)

		r.Get("/trial", h.trialEligibility)
		r.Get("/usage", h.usageStatus)
		r.Get("/usage/remaining", h.remainingTime)
		r.Get("/scenarios/limit", h.scenarioLimit)
		r.Get("/roleplay/sections/{section}/limit", h.sectionLimit)

		r.Group(func(r chi.Router) {
			r.Use(throttle(o.limiter, h.log))

			r.Post("/sessions", h.startSession)
			r.Post("/sessions/{sessionID}/end", h.endSession)
			r.Post("/trial", h.startTrial)
			r.Post("/scenarios", h.recordScenario)
			r.Post("/roleplay/sections/{section}/sessions", h.recordSection)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.log, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.log, errMethodNotAllowed)
	})

	return r
}
