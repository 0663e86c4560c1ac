package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

type recordKey struct {
	userID uuid.UUID
	day    Day
}

// MemoryStore keeps daily records in process memory.
// Suitable for tests and single-instance deployments only.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]DailyRecord
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]DailyRecord)}
}

// Get returns a copy of the record or ErrRecordNotFound.
func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID, day Day) (*DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey{userID, day}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

// Increment adds seconds to the activity column and the total under one lock.
func (s *MemoryStore) Increment(ctx context.Context, userID uuid.UUID, day Day, activity quota.Activity, seconds int64) (*DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.load(userID, day)
	rec.Add(activity, seconds)
	rec.UpdatedAt = time.Now().UTC()
	s.records[recordKey{userID, day}] = rec
	return &rec, nil
}

// IncrementScenarios bumps the day's scenario count and returns it.
func (s *MemoryStore) IncrementScenarios(ctx context.Context, userID uuid.UUID, day Day) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.load(userID, day)
	rec.ScenariosCreated++
	rec.UpdatedAt = time.Now().UTC()
	s.records[recordKey{userID, day}] = rec
	return rec.ScenariosCreated, nil
}

// load must be called with mu held.
func (s *MemoryStore) load(userID uuid.UUID, day Day) DailyRecord {
	rec, ok := s.records[recordKey{userID, day}]
	if !ok {
		rec = DailyRecord{UserID: userID, Day: day}
	}
	return rec
}
