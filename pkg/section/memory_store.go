package section

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/usage"
)

type counterKey struct {
	userID  uuid.UUID
	section string
	day     usage.Day
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[counterKey]int64
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[counterKey]int64)}
}

// Count returns zero for a day with no sessions.
func (s *MemoryStore) Count(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey{userID, section, day}], nil
}

// Increment adds one completed session and returns the new count.
func (s *MemoryStore) Increment(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := counterKey{userID, section, day}
	s.counters[k]++
	return s.counters[k], nil
}
