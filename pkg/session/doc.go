// Package session gates metered speaking activity.
//
// A session moves requested -> authorized -> ended, or requested -> rejected.
// Start resolves the user's subscription, reads the matching ledger and either
// authorizes the session with the seconds left or rejects it with a
// *quota.Rejection. End records the seconds the client reports against the
// daily ledger, or against the lifetime onboarding allowance for sessions that
// were started without a subscription.
//
// Sessions live in a Store with a TTL. A session that is never ended simply
// expires and is never charged. Ending the same session twice fails with
// quota.ErrSessionAlreadyEnded.
//
//	mgr := session.NewManager(resolver, dailyLedger, onboardingLedger, session.NewMemoryStore())
//	grant, err := mgr.Start(ctx, userID, quota.ActivityPractice)
//	// ... the activity runs on the client ...
//	receipt, err := mgr.End(ctx, userID, grant.SessionID, quota.ActivityPractice, 290)
package session
