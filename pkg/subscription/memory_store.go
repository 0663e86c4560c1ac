package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps subscriptions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID][]Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID][]Subscription)}
}

// LatestActive implements Store.
func (s *MemoryStore) LatestActive(ctx context.Context, userID uuid.UUID, now time.Time) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Subscription
	for i := range s.subs[userID] {
		sub := s.subs[userID][i]
		if sub.Status != StatusActive || now.Before(sub.ValidFrom) || !now.Before(sub.ValidTo) {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = &sub
		}
	}
	if latest == nil {
		return nil, ErrSubscriptionNotFound
	}
	return latest, nil
}

// LatestFreeTrial implements Store.
func (s *MemoryStore) LatestFreeTrial(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.subs[userID] {
		if s.subs[userID][i].IsFreeTrial {
			sub := s.subs[userID][i]
			return &sub, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

// Create stores a copy of sub, filling ID and CreatedAt when empty.
func (s *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	if sub == nil || sub.UserID == uuid.Nil {
		return ErrInvalidSubscription
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.IsFreeTrial {
		for _, existing := range s.subs[sub.UserID] {
			if existing.IsFreeTrial {
				return ErrDuplicateTrial
			}
		}
	}

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.subs[sub.UserID] = append(s.subs[sub.UserID], *sub)
	return nil
}
