package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the subscription persistence contract.
type Store interface {
	// LatestActive returns the most recently created active subscription valid
	// at now (ValidFrom <= now < ValidTo). Returns ErrSubscriptionNotFound when there is none.
	LatestActive(ctx context.Context, userID uuid.UUID, now time.Time) (*Subscription, error)

	// LatestFreeTrial returns the user's free-trial row regardless of status or
	// expiry. Returns ErrSubscriptionNotFound when the user never had a trial.
	LatestFreeTrial(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Create inserts a new subscription. Implementations must return
	// ErrDuplicateTrial when a second free-trial row is created for a user.
	Create(ctx context.Context, sub *Subscription) error
}
