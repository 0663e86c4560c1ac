package usage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

var ErrRecordNotFound = errors.New("usage.errors.record_not_found")

// Ledger reads and writes daily usage for the current ledger day.
type Ledger struct {
	store    Store
	calendar Calendar
}

// NewLedger creates a Ledger. Panics on a nil store.
func NewLedger(store Store, calendar Calendar) *Ledger {
	if store == nil {
		panic("usage: store is required")
	}
	return &Ledger{store: store, calendar: calendar}
}

// Calendar returns the calendar used to compute day keys.
func (l *Ledger) Calendar() Calendar {
	return l.calendar
}

// Today returns today's record, or nil when nothing was recorded yet.
func (l *Ledger) Today(ctx context.Context, userID uuid.UUID) (*DailyRecord, error) {
	return l.On(ctx, userID, l.calendar.Today())
}

// On returns the record for a specific day, or nil when absent.
func (l *Ledger) On(ctx context.Context, userID uuid.UUID, day Day) (*DailyRecord, error) {
	rec, err := l.store.Get(ctx, userID, day)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, quota.StoreFailure(err)
	}
	return rec, nil
}

// Increment adds seconds of activity to today's record.
// No cap is checked here; admission happens before the activity starts.
func (l *Ledger) Increment(ctx context.Context, userID uuid.UUID, activity quota.Activity, seconds int64) (*DailyRecord, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}
	if _, err := quota.ParseActivity(string(activity)); err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, quota.ErrInvalidDuration
	}
	if activity == "" {
		activity = quota.ActivityCall
	}

	rec, err := l.store.Increment(ctx, userID, l.calendar.Today(), activity, seconds)
	if err != nil {
		return nil, quota.StoreFailure(err)
	}
	return rec, nil
}

// RecordScenario counts one scenario creation for today and returns the new count.
func (l *Ledger) RecordScenario(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, quota.ErrUnauthenticated
	}
	n, err := l.store.IncrementScenarios(ctx, userID, l.calendar.Today())
	if err != nil {
		return 0, quota.StoreFailure(err)
	}
	return n, nil
}
