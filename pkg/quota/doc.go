// Package quota holds the plan policy for spoken-practice time: which tiers exist,
// how many seconds each tier may consume per day and per activity, and the flat
// per-day counts for role-play sections and scenario creation.
//
// Everything here is pure. Callers read the current consumption from a ledger and
// ask the policy what is left:
//
//	caps := quota.CapsFor(quota.TierBasic, false)
//	remaining := caps.Remaining(quota.ActivityRoleplay, quota.Usage{Practice: 290})
//	// remaining == 10: practice and role-play share one 300 second daily pool.
//
// The package also defines the error taxonomy shared by the engine. Business
// rejections are returned as *Rejection values that unwrap to one of the sentinel
// errors, so both errors.Is and AsRejection work:
//
//	if r, ok := quota.AsRejection(err); ok && errors.Is(err, quota.ErrQuotaExceeded) {
//	    log.Info("daily limit reached", "limit", r.Limit, "used", r.Used)
//	}
//
// Store failures are joined with ErrStoreUnavailable, the only retryable error.
package quota
