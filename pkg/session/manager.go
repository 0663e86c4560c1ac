package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/onboarding"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/subscription"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

// Defaults for session lifetime.
const (
	DefaultTTL         = 6 * time.Hour
	DefaultMaxDuration = 4 * time.Hour
)

// SubscriptionResolver returns the effective subscription or nil.
type SubscriptionResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

// UsageLedger is the daily ledger used for subscribed users.
type UsageLedger interface {
	Today(ctx context.Context, userID uuid.UUID) (*usage.DailyRecord, error)
	Increment(ctx context.Context, userID uuid.UUID, activity quota.Activity, seconds int64) (*usage.DailyRecord, error)
}

// OnboardingLedger is the lifetime ledger used for unsubscribed users.
type OnboardingLedger interface {
	Allowance() int64
	Status(ctx context.Context, userID uuid.UUID) (*onboarding.Usage, error)
	RecordSession(ctx context.Context, userID uuid.UUID, seconds int64) (*onboarding.Usage, error)
}

// Manager authorizes metered sessions and records their consumption.
//
// Admission is best effort: Start reads the ledger and reports what is left
// without reserving it, so two sessions started at the same moment can both be
// authorized against the same remaining seconds. End never re-checks caps.
type Manager struct {
	subs        SubscriptionResolver
	usage       UsageLedger
	onboarding  OnboardingLedger
	store       Store
	ttl         time.Duration
	maxDuration time.Duration
	now         func() time.Time
	clockSet    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets how long an unfinished session is kept before it is dropped
// without charge.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithMaxDuration bounds the seconds a client may report for one session.
func WithMaxDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxDuration = d
		}
	}
}

// WithClock overrides the time source. A store implementing ClockedStore
// checks expiry against the same clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
			m.clockSet = true
		}
	}
}

// NewManager wires a Manager. Panics when a dependency is missing.
func NewManager(subs SubscriptionResolver, daily UsageLedger, lifetime OnboardingLedger, store Store, opts ...Option) *Manager {
	switch {
	case subs == nil:
		panic("session: subscription resolver is required")
	case daily == nil:
		panic("session: usage ledger is required")
	case lifetime == nil:
		panic("session: onboarding ledger is required")
	case store == nil:
		panic("session: store is required")
	}

	m := &Manager{
		subs:        subs,
		usage:       daily,
		onboarding:  lifetime,
		store:       store,
		ttl:         DefaultTTL,
		maxDuration: DefaultMaxDuration,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if cs, ok := store.(ClockedStore); ok && m.clockSet {
		cs.SetClock(m.now)
	}
	return m
}

// MaxDuration returns the longest session a client may report.
func (m *Manager) MaxDuration() time.Duration {
	return m.maxDuration
}

// Start decides whether the user may begin the activity now.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID, activity quota.Activity) (*Grant, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}
	activity, err := quota.ParseActivity(string(activity))
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Activity:  activity,
		Tier:      quota.TierNone,
		State:     StateRequested,
		StartedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	sub, err := m.subs.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return m.startOnboarding(ctx, s)
	}
	return m.startRegular(ctx, s, sub)
}

func (m *Manager) startOnboarding(ctx context.Context, s *Session) (*Grant, error) {
	allowance := m.onboarding.Allowance()
	ob, err := m.onboarding.Status(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	remaining := ob.Remaining(allowance)
	if ob.AllowanceExhausted || remaining <= 0 {
		_ = s.transition(StateRejected)
		r := quota.Reject(quota.ErrOnboardingExhausted, allowance, ob.CumulativeSeconds, 0)
		r.Activity = s.Activity
		return nil, r
	}

	s.Onboarding = true
	if err := m.authorize(ctx, s); err != nil {
		return nil, err
	}

	return &Grant{
		SessionID:         s.ID,
		Activity:          s.Activity,
		Tier:              quota.TierNone,
		Onboarding:        true,
		RemainingSeconds:  remaining,
		DailyLimitSeconds: allowance,
		UsedSeconds:       ob.CumulativeSeconds,
		ExpiresAt:         s.ExpiresAt,
	}, nil
}

func (m *Manager) startRegular(ctx context.Context, s *Session, sub *subscription.Subscription) (*Grant, error) {
	caps := sub.Caps()
	rec, err := m.usage.Today(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	u := rec.Usage()
	remaining := caps.Remaining(s.Activity, u)
	if remaining <= 0 {
		_ = s.transition(StateRejected)
		r := quota.Reject(quota.ErrQuotaExceeded, caps.LimitFor(s.Activity), caps.Consumed(s.Activity, u), 0)
		r.Activity = s.Activity
		r.TrialEndsAt = sub.TrialEndsAt()
		return nil, r
	}

	s.Tier = sub.Tier
	s.IsFreeTrial = sub.IsFreeTrial
	if err := m.authorize(ctx, s); err != nil {
		return nil, err
	}

	return &Grant{
		SessionID:         s.ID,
		Activity:          s.Activity,
		Tier:              sub.EffectiveTier(s.StartedAt),
		IsFreeTrial:       sub.IsFreeTrial,
		RemainingSeconds:  remaining,
		DailyLimitSeconds: caps.DailyPoolSeconds,
		UsedSeconds:       rec.Total(),
		ExpiresAt:         s.ExpiresAt,
	}, nil
}

func (m *Manager) authorize(ctx context.Context, s *Session) error {
	if err := s.transition(StateAuthorized); err != nil {
		return err
	}
	return storeError(m.store.Create(ctx, s))
}

// End closes an authorized session and records the reported seconds.
// An empty activity means the one the session was started with.
func (m *Manager) End(ctx context.Context, userID, sessionID uuid.UUID, activity quota.Activity, seconds int64) (*Receipt, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}
	if seconds < 0 || seconds > int64(m.maxDuration/time.Second) {
		return nil, quota.ErrInvalidDuration
	}
	if activity != "" {
		parsed, err := quota.ParseActivity(string(activity))
		if err != nil {
			return nil, err
		}
		activity = parsed
	}

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, storeError(err)
	}
	if s.UserID != userID {
		return nil, quota.ErrSessionNotFound
	}
	if activity != "" && activity != s.Activity {
		return nil, quota.ErrActivityMismatch
	}
	if s.State == StateEnded {
		return nil, quota.ErrSessionAlreadyEnded
	}

	ended, err := m.store.Finish(ctx, sessionID, m.now(), seconds)
	if err != nil {
		return nil, storeError(err)
	}

	receipt, err := m.record(ctx, ended, seconds)
	if err != nil {
		if reopenErr := m.store.Reopen(ctx, sessionID); reopenErr != nil {
			return nil, errors.Join(err, quota.StoreFailure(reopenErr))
		}
		return nil, err
	}
	return receipt, nil
}

func (m *Manager) record(ctx context.Context, s *Session, seconds int64) (*Receipt, error) {
	receipt := &Receipt{
		SessionID:       s.ID,
		Activity:        s.Activity,
		Onboarding:      s.Onboarding,
		RecordedSeconds: seconds,
	}

	if s.Onboarding {
		ob, err := m.onboarding.RecordSession(ctx, s.UserID, seconds)
		if err != nil {
			// A non-nil aggregate means only the profile mirror failed and the
			// seconds are already recorded. IsExhausted repairs the mirror later.
			if ob == nil {
				return nil, err
			}
		}
		receipt.TotalSeconds = ob.CumulativeSeconds
		receipt.RemainingSeconds = ob.Remaining(m.onboarding.Allowance())
		receipt.OnboardingExhausted = ob.AllowanceExhausted
		return receipt, nil
	}

	rec, err := m.usage.Increment(ctx, s.UserID, s.Activity, seconds)
	if err != nil {
		return nil, err
	}
	receipt.TotalSeconds = rec.TotalSeconds
	receipt.RemainingSeconds = s.Caps().Remaining(s.Activity, rec.Usage())
	return receipt, nil
}
