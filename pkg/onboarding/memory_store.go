package onboarding

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[uuid.UUID]Usage
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usage: make(map[uuid.UUID]Usage)}
}

// Get returns a copy of the aggregate or ErrUsageNotFound.
func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usage[userID]
	if !ok {
		return nil, ErrUsageNotFound
	}
	return &u, nil
}

// Add accumulates seconds and latches the exhausted flag once the total
// reaches allowance.
func (s *MemoryStore) Add(ctx context.Context, userID uuid.UUID, seconds, allowance int64) (*Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.usage[userID]
	u.UserID = userID
	u.CumulativeSeconds += seconds
	if u.CumulativeSeconds >= allowance {
		u.AllowanceExhausted = true
	}
	s.usage[userID] = u
	return &u, nil
}

// MemoryProfileStore is an in-memory ProfileStore.
type MemoryProfileStore struct {
	mu   sync.RWMutex
	used map[uuid.UUID]bool
}

// NewMemoryProfileStore returns an in-process ProfileStore.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{used: make(map[uuid.UUID]bool)}
}

// OnboardingUsed reports the profile flag.
func (s *MemoryProfileStore) OnboardingUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used[userID], nil
}

// MarkOnboardingUsed sets the flag. Repeated calls are no-ops.
func (s *MemoryProfileStore) MarkOnboardingUsed(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[userID] = true
	return nil
}
