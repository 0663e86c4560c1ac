package usage

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// Store defines daily ledger persistence.
type Store interface {
	// Get returns the record for (userID, day) or ErrRecordNotFound.
	Get(ctx context.Context, userID uuid.UUID, day Day) (*DailyRecord, error)

	// Increment atomically adds seconds to the activity column and to
	// TotalSeconds, creating the record when absent. Returns the updated record.
	Increment(ctx context.Context, userID uuid.UUID, day Day, activity quota.Activity, seconds int64) (*DailyRecord, error)

	// IncrementScenarios atomically adds one to ScenariosCreated and returns the new count.
	IncrementScenarios(ctx context.Context, userID uuid.UUID, day Day) (int64, error)
}
