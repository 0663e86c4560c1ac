package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// Resolver finds the subscription that currently applies to a user.
type Resolver struct {
	store Store
	now   func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver backed by store. Panics on a nil store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	if store == nil {
		panic("subscription: store is required")
	}
	r := &Resolver{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the effective subscription or nil when the user is
// unsubscribed. A free trial past its seven days resolves to nil.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}

	now := r.now()
	sub, err := r.store.LatestActive(ctx, userID, now)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, quota.StoreFailure(err)
	}

	if !sub.EffectiveAt(now) {
		return nil, nil
	}
	return sub, nil
}
