package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store keeps live sessions until they end or expire.
type Store interface {
	// Create saves an authorized session. It expires at s.ExpiresAt.
	Create(ctx context.Context, s *Session) error

	// Get returns a session. Missing or expired sessions yield quota.ErrSessionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Finish atomically moves an authorized session to ended and records the
	// reported seconds. An ended session yields quota.ErrSessionAlreadyEnded.
	Finish(ctx context.Context, id uuid.UUID, endedAt time.Time, seconds int64) (*Session, error)

	// Reopen undoes Finish when recording the seconds failed, so the client
	// can retry the end call.
	Reopen(ctx context.Context, id uuid.UUID) error
}

// ClockedStore is a Store that decides expiry with its own clock. NewManager
// hands it the manager's clock when one is configured, so sessions stamped
// with that clock never look expired to the store.
type ClockedStore interface {
	Store
	SetClock(now func() time.Time)
}
