// Package usage is the daily ledger of speaking seconds.
//
// One record exists per (user, calendar day). The day key is computed in a
// single configured timezone so that every process agrees on when "today"
// rolls over. Records are created lazily by the first increment of the day.
//
// Every increment adds to the activity column and to TotalSeconds inside one
// atomic store operation, so the total always equals the sum of the parts,
// even with concurrent writers for the same user.
//
//	ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))
//	if _, err := ledger.Increment(ctx, userID, quota.ActivityPractice, 120); err != nil {
//	    return err
//	}
//	rec, err := ledger.Today(ctx, userID)
package usage
