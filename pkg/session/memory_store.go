package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// MemoryStore implements Store in process memory with periodic cleanup of
// expired sessions.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
	now      func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

var _ ClockedStore = (*MemoryStore)(nil)

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval enables background removal of expired sessions.
// Zero disables it.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(m *MemoryStore) {
		if d > 0 {
			m.ticker = time.NewTicker(d)
		}
	}
}

// WithStoreClock overrides the time source used for expiry checks.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore returns an empty store. The cleanup goroutine runs only when
// WithCleanupInterval is given; stop it with Close.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[uuid.UUID]Session),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ticker != nil {
		go m.cleanupLoop()
	}
	return m
}

// SetClock replaces the time source used for expiry checks.
func (m *MemoryStore) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Create saves s, replacing any session with the same id.
func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	if s == nil || s.ID == uuid.Nil {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

// Get returns a copy of the session. Expired sessions are dropped and
// reported as quota.ErrSessionNotFound.
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return nil, quota.ErrSessionNotFound
	}
	return &s, nil
}

// Finish ends an authorized session under the store lock, so only one of
// several concurrent calls succeeds.
func (m *MemoryStore) Finish(ctx context.Context, id uuid.UUID, endedAt time.Time, seconds int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return nil, quota.ErrSessionNotFound
	}
	if err := s.End(endedAt, seconds); err != nil {
		return nil, err
	}
	m.sessions[id] = s
	return &s, nil
}

// Reopen moves an ended session back to authorized.
func (m *MemoryStore) Reopen(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(id)
	if !ok {
		return quota.ErrSessionNotFound
	}
	s.Reopen()
	m.sessions[id] = s
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// DeleteExpired drops every expired session.
func (m *MemoryStore) DeleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, s := range m.sessions {
		if s.IsExpiredAt(now) {
			delete(m.sessions, id)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		close(m.done)
		if m.ticker != nil {
			m.ticker.Stop()
		}
	})
	return nil
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(id uuid.UUID) (Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if s.IsExpiredAt(m.now()) {
		delete(m.sessions, id)
		return Session{}, false
	}
	return s, true
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			m.DeleteExpired()
		case <-m.done:
			return
		}
	}
}
