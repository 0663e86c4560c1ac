// Package metering is the entry point for every quota operation: session
// admission and recording, free trials, usage status and the flat daily
// counters for scenarios and role-play sections.
package metering

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/onboarding"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/section"
	"github.com/dmitrymomot/talktime/pkg/session"
	"github.com/dmitrymomot/talktime/pkg/subscription"
	"github.com/dmitrymomot/talktime/pkg/trial"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

// Stores are the persistence backends the service is built on.
type Stores struct {
	Subscriptions subscription.Store
	Usage         usage.Store
	Onboarding    onboarding.Store
	Profiles      onboarding.ProfileStore
	Sections      section.Store
	Sessions      session.Store
}

// Service exposes the quota operations.
type Service struct {
	subs     *subscription.Resolver
	sessions *session.Manager
	daily    *usage.Ledger
	lifetime *onboarding.Ledger
	trials   *trial.Activator
	sections *section.Ledger
	metrics  *Metrics
	log      *slog.Logger
}

type options struct {
	location    *time.Location
	now         func() time.Time
	ttl         time.Duration
	maxDuration time.Duration
	registerer  prometheus.Registerer
	metrics     *Metrics
	log         *slog.Logger
}

// Option configures a Service.
type Option func(*options)

// WithLocation sets the time zone that decides where a usage day starts.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock overrides the time source of every component, including the
// expiry checks of a session store implementing session.ClockedStore.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSessionTTL sets how long an unfinished session is kept.
func WithSessionTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithMaxSessionDuration bounds the seconds reported for one session.
func WithMaxSessionDuration(d time.Duration) Option {
	return func(o *options) { o.maxDuration = d }
}

// WithRegisterer registers the service metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithMetrics reuses already registered metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the decision logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewService wires the ledgers and managers over stores. Panics when a store
// is missing.
func NewService(stores Stores, opts ...Option) *Service {
	o := &options{
		location: time.UTC,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(o.registerer)
	}

	calendar := usage.NewCalendar(o.location, usage.WithNow(o.now))
	subs := subscription.NewResolver(stores.Subscriptions, subscription.WithClock(o.now))
	daily := usage.NewLedger(stores.Usage, calendar)
	lifetime := onboarding.NewLedger(stores.Onboarding, stores.Profiles)

	return &Service{
		subs: subs,
		sessions: session.NewManager(subs, daily, lifetime, stores.Sessions,
			session.WithClock(o.now),
			session.WithTTL(o.ttl),
			session.WithMaxDuration(o.maxDuration),
		),
		daily:    daily,
		lifetime: lifetime,
		trials:   trial.NewActivator(stores.Subscriptions, trial.WithClock(o.now)),
		sections: section.NewLedger(stores.Sections, calendar),
		metrics:  o.metrics,
		log:      o.log.With(logger.Component("metering")),
	}
}

// StartSession authorizes a session for the activity or returns a rejection.
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, activity quota.Activity) (*session.Grant, error) {
	grant, err := s.sessions.Start(ctx, userID, activity)
	if err != nil {
		if quota.IsRejection(err) {
			s.metrics.SessionsRejected.WithLabelValues(activityLabel(activity), quota.Code(err)).Inc()
			s.log.InfoContext(ctx, "session rejected",
				logger.UserID(userID),
				logger.Activity(activity),
				logger.Reason(quota.Code(err)),
			)
		}
		return nil, s.fail(ctx, "start_session", userID, err)
	}

	s.metrics.SessionsStarted.WithLabelValues(string(grant.Activity), strconv.FormatBool(grant.Onboarding)).Inc()
	s.log.DebugContext(ctx, "session authorized",
		logger.UserID(userID),
		logger.SessionID(grant.SessionID),
		logger.Activity(grant.Activity),
		logger.Tier(grant.Tier),
		slog.Int64("remaining_seconds", grant.RemainingSeconds),
	)
	return grant, nil
}

// EndSession closes a session and records its seconds.
func (s *Service) EndSession(ctx context.Context, userID, sessionID uuid.UUID, activity quota.Activity, seconds int64) (*session.Receipt, error) {
	receipt, err := s.sessions.End(ctx, userID, sessionID, activity, seconds)
	if err != nil {
		return nil, s.fail(ctx, "end_session", userID, err)
	}

	onboardingLabel := strconv.FormatBool(receipt.Onboarding)
	s.metrics.SessionsEnded.WithLabelValues(string(receipt.Activity), onboardingLabel).Inc()
	s.metrics.SecondsRecorded.WithLabelValues(string(receipt.Activity), onboardingLabel).Add(float64(receipt.RecordedSeconds))
	s.log.DebugContext(ctx, "session recorded",
		logger.UserID(userID),
		logger.SessionID(sessionID),
		logger.Activity(receipt.Activity),
		logger.Seconds(receipt.RecordedSeconds),
	)
	if receipt.OnboardingExhausted {
		s.log.InfoContext(ctx, "onboarding allowance exhausted", logger.UserID(userID))
	}
	return receipt, nil
}

// TrialResult is returned by StartFreeTrial.
type TrialResult struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	TrialEndsAt    time.Time `json:"trial_ends_at"`
}

// StartFreeTrial opens the user's one-time free trial.
func (s *Service) StartFreeTrial(ctx context.Context, userID uuid.UUID) (*TrialResult, error) {
	sub, err := s.trials.Activate(ctx, userID)
	if err != nil {
		if quota.IsRejection(err) {
			s.metrics.TrialActivations.WithLabelValues("already_used").Inc()
		}
		return nil, s.fail(ctx, "start_free_trial", userID, err)
	}

	s.metrics.TrialActivations.WithLabelValues("activated").Inc()
	s.log.InfoContext(ctx, "free trial activated",
		logger.UserID(userID),
		slog.Time("valid_to", sub.ValidTo),
	)
	return &TrialResult{SubscriptionID: sub.ID, TrialEndsAt: sub.ValidTo}, nil
}

// CanStartFreeTrial reports whether the user never had a trial.
func (s *Service) CanStartFreeTrial(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := s.trials.CanActivate(ctx, userID)
	if err != nil {
		return false, s.fail(ctx, "can_start_free_trial", userID, err)
	}
	return ok, nil
}

// fail counts and logs store failures. Rejections and input errors pass
// through untouched.
func (s *Service) fail(ctx context.Context, op string, userID uuid.UUID, err error) error {
	if quota.IsRetryable(err) {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
		s.log.ErrorContext(ctx, "store unavailable",
			slog.String("operation", op),
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	return err
}

func activityLabel(a quota.Activity) string {
	if parsed, err := quota.ParseActivity(string(a)); err == nil {
		return string(parsed)
	}
	return "invalid"
}
