package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription.errors.not_found")
	ErrDuplicateTrial       = errors.New("subscription.errors.duplicate_trial")
	ErrInvalidSubscription  = errors.New("subscription.errors.invalid")
)
