package pgstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/onboarding"
	"github.com/dmitrymomot/talktime/pkg/pg"
)

const getOnboardingUsage = `
SELECT user_id, cumulative_seconds, allowance_exhausted
FROM onboarding_usage
WHERE user_id = $1`

// The exhausted flag only ever flips to true.
const addOnboardingUsage = `
INSERT INTO onboarding_usage (user_id, cumulative_seconds, allowance_exhausted, updated_at)
VALUES ($1, $2::bigint, $2::bigint >= $3::bigint, now())
ON CONFLICT (user_id) DO UPDATE SET
	cumulative_seconds  = onboarding_usage.cumulative_seconds + EXCLUDED.cumulative_seconds,
	allowance_exhausted = onboarding_usage.allowance_exhausted
		OR onboarding_usage.cumulative_seconds + EXCLUDED.cumulative_seconds >= $3::bigint,
	updated_at          = EXCLUDED.updated_at
RETURNING user_id, cumulative_seconds, allowance_exhausted`

const getOnboardingUsed = `SELECT onboarding_used FROM user_profiles WHERE user_id = $1`

const markOnboardingUsed = `
INSERT INTO user_profiles (user_id, onboarding_used, updated_at)
VALUES ($1, TRUE, now())
ON CONFLICT (user_id) DO UPDATE SET onboarding_used = TRUE, updated_at = EXCLUDED.updated_at`

// Onboarding implements onboarding.Store.
type Onboarding struct {
	db DBTX
}

// NewOnboarding returns an onboarding.Store over db.
func NewOnboarding(db DBTX) *Onboarding {
	return &Onboarding{db: db}
}

// Get returns onboarding.ErrUsageNotFound for a user who never spoke.
func (s *Onboarding) Get(ctx context.Context, userID uuid.UUID) (*onboarding.Usage, error) {
	u, err := scanOnboardingUsage(s.db.QueryRow(ctx, getOnboardingUsage, userID))
	if pg.IsNotFoundError(err) {
		return nil, onboarding.ErrUsageNotFound
	}
	return u, err
}

// Add upserts the aggregate. The exhausted flag is computed in SQL so it
// never flips back.
func (s *Onboarding) Add(ctx context.Context, userID uuid.UUID, seconds, allowance int64) (*onboarding.Usage, error) {
	return scanOnboardingUsage(s.db.QueryRow(ctx, addOnboardingUsage, userID, seconds, allowance))
}

func scanOnboardingUsage(row scanner) (*onboarding.Usage, error) {
	var u onboarding.Usage
	if err := row.Scan(&u.UserID, &u.CumulativeSeconds, &u.AllowanceExhausted); err != nil {
		return nil, err
	}
	return &u, nil
}

// Profiles implements onboarding.ProfileStore over user_profiles.
type Profiles struct {
	db DBTX
}

// NewProfiles returns an onboarding.ProfileStore over db.
func NewProfiles(db DBTX) *Profiles {
	return &Profiles{db: db}
}

// OnboardingUsed reports false for a user without a profile row.
func (s *Profiles) OnboardingUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	var used bool
	err := s.db.QueryRow(ctx, getOnboardingUsed, userID).Scan(&used)
	if pg.IsNotFoundError(err) {
		return false, nil
	}
	return used, err
}

// MarkOnboardingUsed upserts the profile flag.
func (s *Profiles) MarkOnboardingUsed(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, markOnboardingUsed, userID)
	return err
}
