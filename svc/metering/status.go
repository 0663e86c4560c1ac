package metering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/subscription"
)

// UsageStatus summarizes what the user has left today, or of the onboarding
// allowance when unsubscribed.
type UsageStatus struct {
	HasSubscription    bool       `json:"has_subscription"`
	PlanTier           quota.Tier `json:"plan_tier"`
	IsFreeTrial        bool       `json:"is_free_trial"`
	IsOnboarding       bool       `json:"is_onboarding"`
	DailyLimitSeconds  int64      `json:"daily_limit_seconds"`
	UsedSeconds        int64      `json:"used_seconds"`
	RemainingSeconds   int64      `json:"remaining_seconds"`
	PracticeRemaining  int64      `json:"practice_remaining_seconds"`
	RoleplayRemaining  int64      `json:"roleplay_remaining_seconds"`
	CanUse             bool       `json:"can_use"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	TrialDaysRemaining int        `json:"trial_days_remaining,omitempty"`
}

// RemainingTime is the short form used before starting a call.
type RemainingTime struct {
	RemainingSeconds  int64 `json:"remaining_seconds"`
	UsedSeconds       int64 `json:"used_seconds"`
	DailyLimitSeconds int64 `json:"daily_limit_seconds"`
	CanStartCall      bool  `json:"can_start_call"`
	IsOnboardingCall  bool  `json:"is_onboarding_call"`
}

// GetUsageStatus reports today's usage for subscribed users and the lifetime
// onboarding allowance otherwise.
func (s *Service) GetUsageStatus(ctx context.Context, userID uuid.UUID) (*UsageStatus, error) {
	st, err := s.status(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_usage_status", userID, err)
	}
	return st, nil
}

// GetRemainingTime reports the seconds left for a call.
func (s *Service) GetRemainingTime(ctx context.Context, userID uuid.UUID) (*RemainingTime, error) {
	st, err := s.status(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_remaining_time", userID, err)
	}
	return &RemainingTime{
		RemainingSeconds:  st.RemainingSeconds,
		UsedSeconds:       st.UsedSeconds,
		DailyLimitSeconds: st.DailyLimitSeconds,
		CanStartCall:      st.CanUse,
		IsOnboardingCall:  st.IsOnboarding,
	}, nil
}

func (s *Service) status(ctx context.Context, userID uuid.UUID) (*UsageStatus, error) {
	sub, err := s.subs.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return s.onboardingStatus(ctx, userID)
	}
	return s.subscribedStatus(ctx, userID, sub)
}

func (s *Service) onboardingStatus(ctx context.Context, userID uuid.UUID) (*UsageStatus, error) {
	allowance := s.lifetime.Allowance()
	ob, err := s.lifetime.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	remaining := ob.Remaining(allowance)
	return &UsageStatus{
		PlanTier:          quota.TierNone,
		IsOnboarding:      true,
		DailyLimitSeconds: allowance,
		UsedSeconds:       ob.CumulativeSeconds,
		RemainingSeconds:  remaining,
		PracticeRemaining: remaining,
		RoleplayRemaining: remaining,
		CanUse:            !ob.AllowanceExhausted && remaining > 0,
	}, nil
}

func (s *Service) subscribedStatus(ctx context.Context, userID uuid.UUID, sub *subscription.Subscription) (*UsageStatus, error) {
	rec, err := s.daily.Today(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.daily.Calendar().Now()
	caps := sub.Caps()
	u := rec.Usage()
	remaining := caps.Remaining(quota.ActivityCall, u)

	st := &UsageStatus{
		HasSubscription:   true,
		PlanTier:          sub.EffectiveTier(now),
		IsFreeTrial:       sub.IsFreeTrial,
		DailyLimitSeconds: caps.DailyPoolSeconds,
		UsedSeconds:       rec.Total(),
		RemainingSeconds:  remaining,
		PracticeRemaining: caps.Remaining(quota.ActivityPractice, u),
		RoleplayRemaining: caps.Remaining(quota.ActivityRoleplay, u),
		CanUse:            remaining > 0,
	}
	if sub.IsFreeTrial {
		st.TrialEndsAt = sub.TrialEndsAt()
		st.TrialDaysRemaining = sub.TrialDaysRemainingAt(now)
	}
	return st, nil
}
