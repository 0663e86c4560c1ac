// Package onboarding tracks the lifetime allowance given to users without a
// subscription. The allowance is 300 seconds in total, never reset. Once the
// cumulative total reaches it the account is flagged as exhausted for good,
// and the flag is mirrored onto the user profile.
package onboarding

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// Usage is a user's lifetime onboarding consumption.
type Usage struct {
	UserID             uuid.UUID `json:"user_id"`
	CumulativeSeconds  int64     `json:"cumulative_seconds"`
	AllowanceExhausted bool      `json:"allowance_exhausted"`
}

// Remaining returns the seconds left of allowance, never negative.
func (u *Usage) Remaining(allowance int64) int64 {
	if u == nil {
		return allowance
	}
	if u.AllowanceExhausted {
		return 0
	}
	return max(0, allowance-u.CumulativeSeconds)
}

var ErrUsageNotFound = errors.New("onboarding.errors.usage_not_found")

// Store persists onboarding aggregates.
type Store interface {
	// Get returns the aggregate or ErrUsageNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*Usage, error)

	// Add atomically adds seconds to the cumulative total and sets the exhausted
	// flag when the total reaches allowance. The flag never goes back to false.
	Add(ctx context.Context, userID uuid.UUID, seconds, allowance int64) (*Usage, error)
}

// ProfileStore exposes the user profile flag that mirrors exhaustion.
type ProfileStore interface {
	OnboardingUsed(ctx context.Context, userID uuid.UUID) (bool, error)
	// MarkOnboardingUsed sets the flag. It must be idempotent.
	MarkOnboardingUsed(ctx context.Context, userID uuid.UUID) error
}

// Ledger is the lifetime onboarding ledger.
type Ledger struct {
	store     Store
	profiles  ProfileStore
	allowance int64
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithAllowance overrides the lifetime allowance in seconds.
func WithAllowance(seconds int64) LedgerOption {
	return func(l *Ledger) {
		if seconds > 0 {
			l.allowance = seconds
		}
	}
}

// NewLedger creates a Ledger. Panics when either store is nil.
func NewLedger(store Store, profiles ProfileStore, opts ...LedgerOption) *Ledger {
	if store == nil {
		panic("onboarding: store is required")
	}
	if profiles == nil {
		panic("onboarding: profile store is required")
	}
	l := &Ledger{
		store:     store,
		profiles:  profiles,
		allowance: quota.OnboardingAllowanceSeconds,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allowance returns the lifetime allowance in seconds.
func (l *Ledger) Allowance() int64 {
	return l.allowance
}

// Usage returns the aggregate, or a zero aggregate when nothing was recorded.
func (l *Ledger) Usage(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	u, err := l.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUsageNotFound) {
			return &Usage{UserID: userID}, nil
		}
		return nil, quota.StoreFailure(err)
	}
	return u, nil
}

// CumulativeSeconds returns lifetime onboarding seconds.
func (l *Ledger) CumulativeSeconds(ctx context.Context, userID uuid.UUID) (int64, error) {
	u, err := l.Usage(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.CumulativeSeconds, nil
}

// IsExhausted reports whether the allowance is gone. The profile flag is the
// primary source; when it is unset but the aggregate says otherwise the
// profile is repaired.
func (l *Ledger) IsExhausted(ctx context.Context, userID uuid.UUID) (bool, error) {
	used, err := l.profiles.OnboardingUsed(ctx, userID)
	if err != nil {
		return false, quota.StoreFailure(err)
	}
	if used {
		return true, nil
	}

	u, err := l.Usage(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.AllowanceExhausted || u.CumulativeSeconds >= l.allowance {
		if err := l.profiles.MarkOnboardingUsed(ctx, userID); err != nil {
			return true, quota.StoreFailure(err)
		}
		return true, nil
	}
	return false, nil
}

// Status returns cumulative seconds and the exhausted flag in one call.
func (l *Ledger) Status(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	u, err := l.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	exhausted, err := l.IsExhausted(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.AllowanceExhausted = u.AllowanceExhausted || exhausted
	return u, nil
}

// RecordSession adds seconds to the lifetime total and flags the account once
// the allowance is reached. Seconds beyond the allowance are still recorded.
func (l *Ledger) RecordSession(ctx context.Context, userID uuid.UUID, seconds int64) (*Usage, error) {
	if userID == uuid.Nil {
		return nil, quota.ErrUnauthenticated
	}
	if seconds < 0 {
		return nil, quota.ErrInvalidDuration
	}

	u, err := l.store.Add(ctx, userID, seconds, l.allowance)
	if err != nil {
		return nil, quota.StoreFailure(err)
	}

	if u.AllowanceExhausted {
		if err := l.profiles.MarkOnboardingUsed(ctx, userID); err != nil {
			return u, quota.StoreFailure(err)
		}
	}
	return u, nil
}
