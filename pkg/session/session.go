package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// Session guards one metered activity between start and end.
// It is not a ledger entry; consumption is recorded only when it ends.
type Session struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Activity        quota.Activity `json:"activity"`
	Tier            quota.Tier     `json:"tier"`
	IsFreeTrial     bool           `json:"is_free_trial"`
	Onboarding      bool           `json:"onboarding"`
	State           State          `json:"state"`
	StartedAt       time.Time      `json:"started_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	RecordedSeconds int64          `json:"recorded_seconds"`
}

// IsExpiredAt reports whether the session outlived its TTL.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Caps returns the caps that applied when the session was authorized.
func (s *Session) Caps() quota.Caps {
	return quota.CapsFor(s.Tier, s.IsFreeTrial)
}

// Grant is returned when a session is authorized.
type Grant struct {
	SessionID         uuid.UUID      `json:"session_id"`
	Activity          quota.Activity `json:"activity"`
	Tier              quota.Tier     `json:"plan_tier"`
	IsFreeTrial       bool           `json:"is_free_trial"`
	Onboarding        bool           `json:"is_onboarding"`
	RemainingSeconds  int64          `json:"remaining_seconds"`
	DailyLimitSeconds int64          `json:"daily_limit_seconds"`
	UsedSeconds       int64          `json:"used_seconds"`
	ExpiresAt         time.Time      `json:"expires_at"`
}

// Receipt is returned when a session ends and its seconds are recorded.
type Receipt struct {
	SessionID           uuid.UUID      `json:"session_id"`
	Activity            quota.Activity `json:"activity"`
	Onboarding          bool           `json:"is_onboarding"`
	RecordedSeconds     int64          `json:"recorded_seconds"`
	TotalSeconds        int64          `json:"total_seconds"`
	RemainingSeconds    int64          `json:"remaining_seconds"`
	OnboardingExhausted bool           `json:"onboarding_exhausted,omitempty"`
}
