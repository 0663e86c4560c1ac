// Package section counts completed role-play sessions per (user, section, day).
package section

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

// MaxNameLength bounds section identifiers.
const MaxNameLength = 64

// NormalizeName trims and validates a section identifier.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", quota.ErrInvalidSection
	}
	return name, nil
}

// Store persists section counters.
type Store interface {
	// Count returns completed sessions for the key, zero when absent.
	Count(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error)

	// Increment atomically adds one and returns the new count.
	Increment(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error)
}

// Ledger reads and writes today's section counters.
type Ledger struct {
	store    Store
	calendar usage.Calendar
}

// NewLedger creates a Ledger. Panics on a nil store.
func NewLedger(store Store, calendar usage.Calendar) *Ledger {
	if store == nil {
		panic("section: store is required")
	}
	return &Ledger{store: store, calendar: calendar}
}

// SessionsToday returns today's completed sessions for the section.
func (l *Ledger) SessionsToday(ctx context.Context, userID uuid.UUID, section string) (int64, error) {
	name, err := NormalizeName(section)
	if err != nil {
		return 0, err
	}
	n, err := l.store.Count(ctx, userID, name, l.calendar.Today())
	if err != nil {
		return 0, quota.StoreFailure(err)
	}
	return n, nil
}

// RecordSession counts one completed session for the section today.
func (l *Ledger) RecordSession(ctx context.Context, userID uuid.UUID, section string) (int64, error) {
	if userID == uuid.Nil {
		return 0, quota.ErrUnauthenticated
	}
	name, err := NormalizeName(section)
	if err != nil {
		return 0, err
	}
	n, err := l.store.Increment(ctx, userID, name, l.calendar.Today())
	if err != nil {
		return 0, quota.StoreFailure(err)
	}
	return n, nil
}
