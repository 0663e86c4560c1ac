package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// DailyRecord is one user's consumption for one ledger day.
type DailyRecord struct {
	UserID           uuid.UUID `json:"user_id"`
	Day              Day       `json:"day"`
	CallSeconds      int64     `json:"call_seconds"`
	PracticeSeconds  int64     `json:"practice_seconds"`
	RoleplaySeconds  int64     `json:"roleplay_seconds"`
	TotalSeconds     int64     `json:"total_seconds"`
	ScenariosCreated int64     `json:"scenarios_created"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Usage returns the per-activity seconds. A nil record is a fresh day.
func (r *DailyRecord) Usage() quota.Usage {
	if r == nil {
		return quota.Usage{}
	}
	return quota.Usage{
		Call:     r.CallSeconds,
		Practice: r.PracticeSeconds,
		Roleplay: r.RoleplaySeconds,
	}
}

// Total returns TotalSeconds, treating nil as zero.
func (r *DailyRecord) Total() int64 {
	if r == nil {
		return 0
	}
	return r.TotalSeconds
}

// Scenarios returns ScenariosCreated, treating nil as zero.
func (r *DailyRecord) Scenarios() int64 {
	if r == nil {
		return 0
	}
	return r.ScenariosCreated
}

// Add applies seconds to the activity column and the total.
// Store implementations use it to keep the two in lock-step.
func (r *DailyRecord) Add(activity quota.Activity, seconds int64) {
	switch activity {
	case quota.ActivityPractice:
		r.PracticeSeconds += seconds
	case quota.ActivityRoleplay:
		r.RoleplaySeconds += seconds
	default:
		r.CallSeconds += seconds
	}
	r.TotalSeconds += seconds
}

// Column returns the storage column for the activity.
func Column(activity quota.Activity) string {
	switch activity {
	case quota.ActivityPractice:
		return "practice_seconds"
	case quota.ActivityRoleplay:
		return "roleplay_seconds"
	default:
		return "call_seconds"
	}
}
