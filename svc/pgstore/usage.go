package pgstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/pg"
	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

const dailyUsageColumns = `user_id, to_char(usage_date, 'YYYY-MM-DD'), call_seconds, practice_seconds,
	roleplay_seconds, total_seconds, scenarios_created, updated_at`

const getDailyUsage = `
SELECT ` + dailyUsageColumns + `
FROM daily_usage
WHERE user_id = $1 AND usage_date = $2::date`

const incrementDailyUsage = `
INSERT INTO daily_usage (user_id, usage_date, call_seconds, practice_seconds, roleplay_seconds, total_seconds, updated_at)
VALUES ($1, $2::date, $3::bigint, $4::bigint, $5::bigint, $3::bigint + $4::bigint + $5::bigint, now())
ON CONFLICT (user_id, usage_date) DO UPDATE SET
	call_seconds     = daily_usage.call_seconds + EXCLUDED.call_seconds,
	practice_seconds = daily_usage.practice_seconds + EXCLUDED.practice_seconds,
	roleplay_seconds = daily_usage.roleplay_seconds + EXCLUDED.roleplay_seconds,
	total_seconds    = daily_usage.total_seconds + EXCLUDED.total_seconds,
	updated_at       = EXCLUDED.updated_at
RETURNING ` + dailyUsageColumns

const incrementScenarios = `
INSERT INTO daily_usage (user_id, usage_date, scenarios_created, updated_at)
VALUES ($1, $2::date, 1, now())
ON CONFLICT (user_id, usage_date) DO UPDATE SET
	scenarios_created = daily_usage.scenarios_created + 1,
	updated_at        = EXCLUDED.updated_at
RETURNING scenarios_created`

// Usage implements usage.Store.
type Usage struct {
	db DBTX
}

// NewUsage returns a usage.Store over db.
func NewUsage(db DBTX) *Usage {
	return &Usage{db: db}
}

// Get returns usage.ErrRecordNotFound for a day without consumption.
func (s *Usage) Get(ctx context.Context, userID uuid.UUID, day usage.Day) (*usage.DailyRecord, error) {
	rec, err := scanDailyRecord(s.db.QueryRow(ctx, getDailyUsage, userID, day.String()))
	if pg.IsNotFoundError(err) {
		return nil, usage.ErrRecordNotFound
	}
	return rec, err
}

// Increment upserts the day row, adding seconds to the activity column and
// the total in the same statement.
func (s *Usage) Increment(ctx context.Context, userID uuid.UUID, day usage.Day, activity quota.Activity, seconds int64) (*usage.DailyRecord, error) {
	var delta usage.DailyRecord
	delta.Add(activity, seconds)

	return scanDailyRecord(s.db.QueryRow(ctx, incrementDailyUsage,
		userID, day.String(), delta.CallSeconds, delta.PracticeSeconds, delta.RoleplaySeconds,
	))
}

// IncrementScenarios upserts the day row and returns the new scenario count.
func (s *Usage) IncrementScenarios(ctx context.Context, userID uuid.UUID, day usage.Day) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, incrementScenarios, userID, day.String()).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDailyRecord(row scanner) (*usage.DailyRecord, error) {
	var (
		rec usage.DailyRecord
		day string
	)
	if err := row.Scan(
		&rec.UserID, &day, &rec.CallSeconds, &rec.PracticeSeconds,
		&rec.RoleplaySeconds, &rec.TotalSeconds, &rec.ScenariosCreated, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Day = usage.Day(day)
	return &rec, nil
}
