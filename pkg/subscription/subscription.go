package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// Status is the lifecycle state of a subscription row.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Subscription is a user's entitlement to a tier for a period of time.
type Subscription struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Tier           quota.Tier
	IsFreeTrial    bool
	TrialStartedAt *time.Time // set only for free trials
	ValidFrom      time.Time
	ValidTo        time.Time
	Status         Status
	CreatedAt      time.Time
}

// IsActive reports the status only; see ValidAt for the time window.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// ValidAt reports whether the row is active and inside its validity window.
func (s *Subscription) ValidAt(now time.Time) bool {
	if !s.IsActive() {
		return false
	}
	if !s.ValidFrom.IsZero() && now.Before(s.ValidFrom) {
		return false
	}
	return now.Before(s.ValidTo)
}

// TrialEndsAt returns when the free trial lapses, or nil for paid subscriptions.
func (s *Subscription) TrialEndsAt() *time.Time {
	if !s.IsFreeTrial {
		return nil
	}
	start := s.ValidFrom
	if s.TrialStartedAt != nil {
		start = *s.TrialStartedAt
	}
	end := start.Add(quota.TrialDuration).UTC()
	return &end
}

// TrialActiveAt reports whether a free trial is still running at now.
// Always false for paid subscriptions.
func (s *Subscription) TrialActiveAt(now time.Time) bool {
	end := s.TrialEndsAt()
	return end != nil && now.Before(*end)
}

// EffectiveAt reports whether the subscription grants anything at now.
func (s *Subscription) EffectiveAt(now time.Time) bool {
	if !s.ValidAt(now) {
		return false
	}
	if s.IsFreeTrial {
		return s.TrialActiveAt(now)
	}
	return true
}

// EffectiveTier returns the tier used for policy lookups at now.
func (s *Subscription) EffectiveTier(now time.Time) quota.Tier {
	if s == nil || !s.EffectiveAt(now) {
		return quota.TierNone
	}
	if s.IsFreeTrial {
		return quota.TierFreeTrial
	}
	return s.Tier
}

// Caps returns the daily caps this subscription grants.
func (s *Subscription) Caps() quota.Caps {
	if s == nil {
		return quota.CapsFor(quota.TierNone, false)
	}
	return quota.CapsFor(s.Tier, s.IsFreeTrial)
}

// TrialDaysRemainingAt returns whole trial days left at now, rounding partial days up.
func (s *Subscription) TrialDaysRemainingAt(now time.Time) int {
	end := s.TrialEndsAt()
	if end == nil {
		return 0
	}
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}
