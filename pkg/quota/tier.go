package quota

import (
	"strings"
)

// Tier is a closed set of subscription tiers.
type Tier string

const (
	TierNone      Tier = "none"
	TierFreeTrial Tier = "free_trial"
	TierBasic     Tier = "basic"
	TierPro       Tier = "pro"
)

// Tiers lists every known tier in ascending order of allowance.
var Tiers = []Tier{TierNone, TierFreeTrial, TierBasic, TierPro}

// ParseTier converts a stored tier name into a Tier.
// An empty value is treated as TierNone.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TierNone, nil
	case TierNone, TierFreeTrial, TierBasic, TierPro:
		return t, nil
	default:
		return TierNone, ErrUnknownTier
	}
}

func (t Tier) String() string { return string(t) }

// Activity is the kind of metered speaking activity.
type Activity string

const (
	ActivityCall     Activity = "call"
	ActivityPractice Activity = "practice"
	ActivityRoleplay Activity = "roleplay"
)

// Activities lists every metered activity.
var Activities = []Activity{ActivityCall, ActivityPractice, ActivityRoleplay}

// ParseActivity validates an activity name supplied by a client.
// An empty name means a live call.
func ParseActivity(s string) (Activity, error) {
	switch a := Activity(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ActivityCall, nil
	case ActivityCall, ActivityPractice, ActivityRoleplay:
		return a, nil
	default:
		return "", ErrInvalidActivity
	}
}

func (a Activity) String() string { return string(a) }

// CountsTowardPool reports whether seconds spent on the activity draw down the
// shared daily pool. Calls are recorded but only gated by what is left in the pool.
func (a Activity) CountsTowardPool() bool {
	return a == ActivityPractice || a == ActivityRoleplay
}
