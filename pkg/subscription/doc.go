// Package subscription resolves which plan a user is on right now.
//
// A user has at most one effective subscription: the most recent active row whose
// validity window has not closed. Free-trial rows carry a trial start and lapse
// seven days later even if the row itself is still marked active. Resolution is
// read-only; the only write this package exposes is Store.Create, which the trial
// activator uses to open a free trial.
//
//	store := subscription.NewMemoryStore()
//	resolver := subscription.NewResolver(store)
//
//	sub, err := resolver.Resolve(ctx, userID)
//	if err != nil {
//	    // storage failure, retryable
//	}
//	if sub == nil {
//	    // unsubscribed: onboarding allowance applies
//	}
package subscription
