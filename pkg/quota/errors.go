package quota

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for quota operations
var (
	// Input errors
	ErrUnauthenticated = errors.New("quota.errors.unauthenticated")
	ErrInvalidActivity = errors.New("quota.errors.invalid_activity_type")
	ErrInvalidDuration = errors.New("quota.errors.invalid_duration")
	ErrInvalidSection  = errors.New("quota.errors.invalid_section")
	ErrUnknownTier     = errors.New("quota.errors.unknown_tier")

	// Admission rejections
	ErrOnboardingExhausted   = errors.New("quota.errors.onboarding_exhausted")
	ErrQuotaExceeded         = errors.New("quota.errors.quota_exceeded")
	ErrTrialAlreadyUsed      = errors.New("quota.errors.trial_already_used")
	ErrSectionLimitExceeded  = errors.New("quota.errors.section_limit_exceeded")
	ErrScenarioLimitExceeded = errors.New("quota.errors.scenario_limit_exceeded")

	// Session lifecycle errors
	ErrSessionNotFound     = errors.New("quota.errors.session_not_found")
	ErrSessionAlreadyEnded = errors.New("quota.errors.session_already_ended")
	ErrActivityMismatch    = errors.New("quota.errors.activity_mismatch")

	// System errors
	ErrStoreUnavailable = errors.New("quota.errors.store_unavailable")
)

// Rejection is a business refusal carrying the numbers a client needs to
// explain it. It unwraps to its Reason sentinel.
type Rejection struct {
	Reason      error      `json:"-"`
	Activity    Activity   `json:"activity,omitempty"`
	Section     string     `json:"section,omitempty"`
	Limit       int64      `json:"limit"`
	Used        int64      `json:"used"`
	Remaining   int64      `json:"remaining"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Reason == nil {
		return "quota rejected"
	}
	return fmt.Sprintf("%s: limit=%d used=%d remaining=%d", r.Reason.Error(), r.Limit, r.Used, r.Remaining)
}

func (r *Rejection) Unwrap() error { return r.Reason }

// Reject builds a Rejection for reason with the given numbers.
func Reject(reason error, limit, used, remaining int64) *Rejection {
	return &Rejection{
		Reason:    reason,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
	}
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// StoreFailure marks err as a storage failure. A nil err stays nil.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsRejection reports whether err is a business refusal rather than a failure.
func IsRejection(err error) bool {
	_, ok := AsRejection(err)
	return ok
}

// Code maps an error to a stable machine-readable code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidActivity):
		return "invalid_activity_type"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrInvalidSection):
		return "invalid_section"
	case errors.Is(err, ErrOnboardingExhausted):
		return "onboarding_exhausted"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrTrialAlreadyUsed):
		return "trial_already_used"
	case errors.Is(err, ErrSectionLimitExceeded):
		return "section_limit_exceeded"
	case errors.Is(err, ErrScenarioLimitExceeded):
		return "scenario_limit_exceeded"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionAlreadyEnded):
		return "session_already_ended"
	case errors.Is(err, ErrActivityMismatch):
		return "activity_mismatch"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}
