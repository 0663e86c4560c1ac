package quota

import "time"

// Unlimited marks a count limit without an upper bound.
const Unlimited int64 = -1

// Policy constants. Durations are in seconds.
const (
	BasicDailyPoolSeconds int64 = 300
	ProDailyPoolSeconds   int64 = 3600
	PracticeCapSeconds    int64 = 300

	OnboardingAllowanceSeconds int64 = 300

	DailySectionSessions  int64 = 5
	DailyScenarioCreation int64 = 5

	TrialDays = 7
)

// TrialDuration is the length of the free trial window.
const TrialDuration = TrialDays * 24 * time.Hour

// Caps are the per-day second limits for a tier.
type Caps struct {
	DailyPoolSeconds   int64 `json:"daily_pool_seconds"`
	PracticeCapSeconds int64 `json:"practice_cap_seconds"`
	RoleplayCapSeconds int64 `json:"roleplay_cap_seconds"`
}

// Usage is the consumption recorded for one user on one day.
type Usage struct {
	Call     int64 `json:"call_seconds"`
	Practice int64 `json:"practice_seconds"`
	Roleplay int64 `json:"roleplay_seconds"`
}

// Total returns the sum of all activity seconds.
func (u Usage) Total() int64 {
	return u.Call + u.Practice + u.Roleplay
}

// PoolUsed returns the seconds drawn from the shared daily pool.
func (u Usage) PoolUsed() int64 {
	return u.Practice + u.Roleplay
}

// Of returns the seconds recorded for a single activity.
func (u Usage) Of(a Activity) int64 {
	switch a {
	case ActivityPractice:
		return u.Practice
	case ActivityRoleplay:
		return u.Roleplay
	default:
		return u.Call
	}
}

// CapsFor maps a tier and trial flag to the daily caps.
// A subscription flagged as a free trial always gets the basic allowance.
func CapsFor(tier Tier, isFreeTrial bool) Caps {
	if isFreeTrial {
		tier = TierFreeTrial
	}

	switch tier {
	case TierFreeTrial, TierBasic:
		return Caps{
			DailyPoolSeconds:   BasicDailyPoolSeconds,
			PracticeCapSeconds: PracticeCapSeconds,
			RoleplayCapSeconds: BasicDailyPoolSeconds,
		}
	case TierPro:
		return Caps{
			DailyPoolSeconds:   ProDailyPoolSeconds,
			PracticeCapSeconds: PracticeCapSeconds,
			RoleplayCapSeconds: ProDailyPoolSeconds - PracticeCapSeconds,
		}
	default:
		return Caps{PracticeCapSeconds: PracticeCapSeconds}
	}
}

// RemainingPool returns the unused part of the shared pool, never negative.
func (c Caps) RemainingPool(u Usage) int64 {
	return max(0, c.DailyPoolSeconds-u.PoolUsed())
}

// Remaining returns how many seconds the activity may still consume today.
// Practice and role-play are bounded by their own cap and by the pool;
// calls are bounded by the pool only.
func (c Caps) Remaining(a Activity, u Usage) int64 {
	pool := c.RemainingPool(u)

	switch a {
	case ActivityPractice:
		return max(0, min(c.PracticeCapSeconds-u.Practice, pool))
	case ActivityRoleplay:
		return max(0, min(c.RoleplayCapSeconds-u.Roleplay, pool))
	default:
		return pool
	}
}

// LimitFor returns the nominal daily limit reported to clients for the activity.
func (c Caps) LimitFor(a Activity) int64 {
	switch a {
	case ActivityPractice:
		return min(c.PracticeCapSeconds, c.DailyPoolSeconds)
	case ActivityRoleplay:
		return min(c.RoleplayCapSeconds, c.DailyPoolSeconds)
	default:
		return c.DailyPoolSeconds
	}
}

// Consumed returns the part of LimitFor(a) that is no longer available, so
// that Consumed + Remaining == LimitFor for every activity.
func (c Caps) Consumed(a Activity, u Usage) int64 {
	return max(0, c.LimitFor(a)-c.Remaining(a, u))
}

// SectionSessionLimit returns the daily number of role-play sessions allowed per section.
func SectionSessionLimit(tier Tier, isFreeTrial bool) int64 {
	return countLimit(tier, isFreeTrial, DailySectionSessions)
}

// ScenarioCreationLimit returns the daily number of custom scenarios a user may create.
func ScenarioCreationLimit(tier Tier, isFreeTrial bool) int64 {
	return countLimit(tier, isFreeTrial, DailyScenarioCreation)
}

func countLimit(tier Tier, isFreeTrial bool, basic int64) int64 {
	if isFreeTrial {
		return basic
	}
	switch tier {
	case TierFreeTrial, TierBasic:
		return basic
	case TierPro:
		return Unlimited
	default:
		return 0
	}
}

// CountQuota describes a flat daily count limit.
type CountQuota struct {
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
	Allowed   bool  `json:"allowed"`
}

// NewCountQuota evaluates used against limit. Remaining is Unlimited when the
// limit is unbounded.
func NewCountQuota(limit, used int64) CountQuota {
	if limit == Unlimited {
		return CountQuota{Limit: Unlimited, Used: used, Remaining: Unlimited, Allowed: true}
	}
	remaining := max(0, limit-used)
	return CountQuota{
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		Allowed:   remaining > 0,
	}
}
