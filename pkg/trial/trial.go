// Package trial opens the one-time seven day free trial.
package trial

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/subscription"
)

// Activator grants free trials. A user who ever had a trial row, expired or
// not, cannot start another one.
type Activator struct {
	store subscription.Store
	now   func() time.Time
}

// Option configures an Activator.
type Option func(*Activator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Activator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewActivator creates an Activator. Panics on a nil store.
func NewActivator(store subscription.Store, opts ...Option) *Activator {
	if store == nil {
		panic("trial: subscription store is required")
	}
	a := &Activator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CanActivate reports whether the user never had a free trial.
func (a *Activator) CanActivate(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, quota.ErrUnauthenticated
	}
	_, err := a.store.LatestFreeTrial(ctx, userID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return true, nil
	default:
		return false, quota.StoreFailure(err)
	}
}

// Activate creates the trial subscription. A second attempt fails with a
// TrialAlreadyUsed rejection carrying the earlier trial's end date.
func (a *Activator) Activate(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}

	existing, err := a.store.LatestFreeTrial(ctx, userID)
	switch {
	case err == nil:
		return nil, a.alreadyUsed(existing)
	case !errors.Is(err, subscription.ErrSubscriptionNotFound):
		return nil, quota.StoreFailure(err)
	}

	now := a.now().UTC()
	sub := &subscription.Subscription{
		ID:             uuid.New(),
		UserID:         userID,
		Tier:           quota.TierFreeTrial,
		IsFreeTrial:    true,
		TrialStartedAt: &now,
		ValidFrom:      now,
		ValidTo:        now.Add(quota.TrialDuration),
		Status:         subscription.StatusActive,
		CreatedAt:      now,
	}

	if err := a.store.Create(ctx, sub); err != nil {
		if errors.Is(err, subscription.ErrDuplicateTrial) {
			// Lost a race with a concurrent activation.
			existing, _ := a.store.LatestFreeTrial(ctx, userID)
			return nil, a.alreadyUsed(existing)
		}
		return nil, quota.StoreFailure(err)
	}
	return sub, nil
}

func (a *Activator) alreadyUsed(existing *subscription.Subscription) error {
	r := &quota.Rejection{Reason: quota.ErrTrialAlreadyUsed}
	if existing != nil {
		r.TrialEndsAt = existing.TrialEndsAt()
	}
	return r
}
