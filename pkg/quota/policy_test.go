package quota_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

func TestCapsFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		tier        quota.Tier
		isFreeTrial bool
		want        quota.Caps
	}{
		{"none", quota.TierNone, false, quota.Caps{DailyPoolSeconds: 0, PracticeCapSeconds: 300, RoleplayCapSeconds: 0}},
		{"free trial tier", quota.TierFreeTrial, false, quota.Caps{DailyPoolSeconds: 300, PracticeCapSeconds: 300, RoleplayCapSeconds: 300}},
		{"basic", quota.TierBasic, false, quota.Caps{DailyPoolSeconds: 300, PracticeCapSeconds: 300, RoleplayCapSeconds: 300}},
		{"pro", quota.TierPro, false, quota.Caps{DailyPoolSeconds: 3600, PracticeCapSeconds: 300, RoleplayCapSeconds: 3300}},
		{"pro flagged as trial", quota.TierPro, true, quota.Caps{DailyPoolSeconds: 300, PracticeCapSeconds: 300, RoleplayCapSeconds: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, quota.CapsFor(tt.tier, tt.isFreeTrial))
		})
	}
}

func TestCapsFor_Invariants(t *testing.T) {
	t.Parallel()

	t.Run("is pure", func(t *testing.T) {
		t.Parallel()
		for _, tier := range quota.Tiers {
			for _, trial := range []bool{false, true} {
				assert.Equal(t, quota.CapsFor(tier, trial), quota.CapsFor(tier, trial))
			}
		}
	})

	t.Run("pro sub-caps add up to the pool", func(t *testing.T) {
		t.Parallel()
		caps := quota.CapsFor(quota.TierPro, false)
		assert.Equal(t, caps.DailyPoolSeconds, caps.PracticeCapSeconds+caps.RoleplayCapSeconds)
	})

	t.Run("basic sub-caps each equal the pool", func(t *testing.T) {
		t.Parallel()
		for _, tier := range []quota.Tier{quota.TierBasic, quota.TierFreeTrial} {
			caps := quota.CapsFor(tier, false)
			assert.Equal(t, caps.DailyPoolSeconds, caps.PracticeCapSeconds)
			assert.Equal(t, caps.DailyPoolSeconds, caps.RoleplayCapSeconds)
		}
	})
}

func TestCaps_Remaining(t *testing.T) {
	t.Parallel()

	basic := quota.CapsFor(quota.TierBasic, false)
	pro := quota.CapsFor(quota.TierPro, false)

	t.Run("basic shared pool after practice", func(t *testing.T) {
		t.Parallel()
		u := quota.Usage{Practice: 290}
		assert.Equal(t, int64(10), basic.Remaining(quota.ActivityRoleplay, u))
		assert.Equal(t, int64(10), basic.Remaining(quota.ActivityPractice, u))
		assert.Equal(t, int64(10), basic.Remaining(quota.ActivityCall, u))
	})

	t.Run("pro fresh day", func(t *testing.T) {
		t.Parallel()
		var u quota.Usage
		assert.Equal(t, int64(300), pro.Remaining(quota.ActivityPractice, u))
		assert.Equal(t, int64(3300), pro.Remaining(quota.ActivityRoleplay, u))
		assert.Equal(t, int64(3600), pro.Remaining(quota.ActivityCall, u))
	})

	t.Run("pro practice capped while roleplay continues", func(t *testing.T) {
		t.Parallel()
		u := quota.Usage{Practice: 300, Roleplay: 1000}
		assert.Equal(t, int64(0), pro.Remaining(quota.ActivityPractice, u))
		assert.Equal(t, int64(2300), pro.Remaining(quota.ActivityRoleplay, u))
		assert.Equal(t, int64(2300), pro.Remaining(quota.ActivityCall, u))
	})

	t.Run("overshoot never goes negative", func(t *testing.T) {
		t.Parallel()
		u := quota.Usage{Practice: 400, Roleplay: 50}
		assert.Equal(t, int64(0), basic.Remaining(quota.ActivityPractice, u))
		assert.Equal(t, int64(0), basic.Remaining(quota.ActivityRoleplay, u))
		assert.Equal(t, int64(0), basic.RemainingPool(u))
	})

	t.Run("call seconds do not draw the pool", func(t *testing.T) {
		t.Parallel()
		u := quota.Usage{Call: 1000}
		assert.Equal(t, int64(300), basic.Remaining(quota.ActivityPractice, u))
	})

	t.Run("none tier has nothing", func(t *testing.T) {
		t.Parallel()
		caps := quota.CapsFor(quota.TierNone, false)
		for _, a := range quota.Activities {
			assert.Equal(t, int64(0), caps.Remaining(a, quota.Usage{}))
		}
	})
}

func TestCaps_RemainingIsMonotonic(t *testing.T) {
	t.Parallel()

	for _, tier := range quota.Tiers {
		caps := quota.CapsFor(tier, false)
		for _, a := range []quota.Activity{quota.ActivityPractice, quota.ActivityRoleplay} {
			prev := caps.Remaining(a, quota.Usage{})
			for used := int64(0); used <= 4000; used += 50 {
				own := caps.Remaining(a, usageOf(a, used, 0))
				assert.LessOrEqual(t, own, prev, "tier=%s activity=%s used=%d", tier, a, used)
				prev = own

				other := caps.Remaining(a, usageOf(a, 0, used))
				assert.LessOrEqual(t, other, caps.Remaining(a, usageOf(a, 0, max(0, used-50))))
			}
		}
	}
}

func usageOf(a quota.Activity, own, other int64) quota.Usage {
	if a == quota.ActivityPractice {
		return quota.Usage{Practice: own, Roleplay: other}
	}
	return quota.Usage{Roleplay: own, Practice: other}
}

func TestCaps_LimitFor(t *testing.T) {
	t.Parallel()

	pro := quota.CapsFor(quota.TierPro, false)
	assert.Equal(t, int64(300), pro.LimitFor(quota.ActivityPractice))
	assert.Equal(t, int64(3300), pro.LimitFor(quota.ActivityRoleplay))
	assert.Equal(t, int64(3600), pro.LimitFor(quota.ActivityCall))

	basic := quota.CapsFor(quota.TierBasic, false)
	assert.Equal(t, int64(300), basic.LimitFor(quota.ActivityRoleplay))
}

func TestCaps_Consumed(t *testing.T) {
	t.Parallel()

	basic := quota.CapsFor(quota.TierBasic, false)
	pro := quota.CapsFor(quota.TierPro, false)

	u := quota.Usage{Practice: 290}
	assert.Equal(t, int64(290), basic.Consumed(quota.ActivityRoleplay, u))
	assert.Equal(t, int64(290), basic.Consumed(quota.ActivityCall, u))

	u = quota.Usage{Practice: 300}
	assert.Equal(t, int64(300), pro.Consumed(quota.ActivityPractice, u))
	assert.Equal(t, int64(0), pro.Consumed(quota.ActivityRoleplay, u))

	u = quota.Usage{Practice: 500}
	assert.Equal(t, int64(300), basic.Consumed(quota.ActivityPractice, u))

	for _, a := range quota.Activities {
		u := quota.Usage{Practice: 120, Roleplay: 70, Call: 40}
		assert.Equal(t, pro.LimitFor(a), pro.Consumed(a, u)+pro.Remaining(a, u))
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()

	u := quota.Usage{Call: 10, Practice: 20, Roleplay: 30}
	assert.Equal(t, int64(60), u.Total())
	assert.Equal(t, int64(50), u.PoolUsed())
	assert.Equal(t, int64(10), u.Of(quota.ActivityCall))
	assert.Equal(t, int64(20), u.Of(quota.ActivityPractice))
	assert.Equal(t, int64(30), u.Of(quota.ActivityRoleplay))
}

func TestCountLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier  quota.Tier
		trial bool
		want  int64
	}{
		{quota.TierNone, false, 0},
		{quota.TierFreeTrial, false, 5},
		{quota.TierBasic, false, 5},
		{quota.TierPro, false, quota.Unlimited},
		{quota.TierPro, true, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, quota.SectionSessionLimit(tt.tier, tt.trial), "section %s", tt.tier)
		assert.Equal(t, tt.want, quota.ScenarioCreationLimit(tt.tier, tt.trial), "scenario %s", tt.tier)
	}
}

func TestNewCountQuota(t *testing.T) {
	t.Parallel()

	t.Run("under limit", func(t *testing.T) {
		t.Parallel()
		q := quota.NewCountQuota(5, 2)
		assert.Equal(t, quota.CountQuota{Limit: 5, Used: 2, Remaining: 3, Allowed: true}, q)
	})

	t.Run("at limit", func(t *testing.T) {
		t.Parallel()
		q := quota.NewCountQuota(5, 5)
		assert.False(t, q.Allowed)
		assert.Equal(t, int64(0), q.Remaining)
	})

	t.Run("over limit", func(t *testing.T) {
		t.Parallel()
		q := quota.NewCountQuota(5, 7)
		assert.False(t, q.Allowed)
		assert.Equal(t, int64(0), q.Remaining)
	})

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()
		q := quota.NewCountQuota(quota.Unlimited, 1000)
		assert.True(t, q.Allowed)
		assert.Equal(t, quota.Unlimited, q.Remaining)
	})

	t.Run("zero limit", func(t *testing.T) {
		t.Parallel()
		q := quota.NewCountQuota(0, 0)
		assert.False(t, q.Allowed)
	})
}
