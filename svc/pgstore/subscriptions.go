package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/pg"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/subscription"
)

const subscriptionColumns = `id, user_id, plan_tier, is_free_trial, trial_started_at, valid_from, valid_to, status, created_at`

const latestActiveSubscription = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1 AND status = 'active' AND valid_from <= $2 AND valid_to > $2
ORDER BY created_at DESC
LIMIT 1`

const latestFreeTrial = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1 AND is_free_trial
ORDER BY created_at DESC
LIMIT 1`

const insertSubscription = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Subscriptions implements subscription.Store.
type Subscriptions struct {
	db DBTX
}

// NewSubscriptions returns a subscription.Store over db.
func NewSubscriptions(db DBTX) *Subscriptions {
	return &Subscriptions{db: db}
}

// LatestActive implements subscription.Store.
func (s *Subscriptions) LatestActive(ctx context.Context, userID uuid.UUID, now time.Time) (*subscription.Subscription, error) {
	return s.one(ctx, latestActiveSubscription, userID, now)
}

// LatestFreeTrial implements subscription.Store.
func (s *Subscriptions) LatestFreeTrial(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return s.one(ctx, latestFreeTrial, userID)
}

// Create inserts sub. A second free trial for the same user violates the
// partial unique index and returns subscription.ErrDuplicateTrial.
func (s *Subscriptions) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.UserID == uuid.Nil {
		return subscription.ErrInvalidSubscription
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertSubscription,
		sub.ID, sub.UserID, string(sub.Tier), sub.IsFreeTrial, sub.TrialStartedAt,
		sub.ValidFrom, sub.ValidTo, string(sub.Status), sub.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) && pg.ConstraintName(err) == "subscriptions_one_trial_per_user" {
		return subscription.ErrDuplicateTrial
	}
	return err
}

func (s *Subscriptions) one(ctx context.Context, query string, args ...any) (*subscription.Subscription, error) {
	var (
		sub          subscription.Subscription
		tier, status string
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&sub.ID, &sub.UserID, &tier, &sub.IsFreeTrial, &sub.TrialStartedAt,
		&sub.ValidFrom, &sub.ValidTo, &status, &sub.CreatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.Tier = quota.Tier(tier)
	sub.Status = subscription.Status(status)
	return &sub, nil
}
