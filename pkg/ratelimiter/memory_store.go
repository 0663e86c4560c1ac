package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	refilledAt time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process. Buckets idle for longer than the
// stale threshold are dropped by a background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are swept. Zero disables
// the sweep.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupInterval = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns a process-local Store. Stale buckets are swept in
// the background until Close is called.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:         make(map[string]*bucket),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cleanupInterval > 0 {
		go s.cleanupLoop()
	}
	return s
}

// ConsumeTokens implements Store.
func (s *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, refilledAt: now}
		s.buckets[key] = b
	}
	b.lastAccess = now

	if intervals := int(now.Sub(b.refilledAt) / cfg.RefillInterval); intervals > 0 {
		// Capped before multiplying so a long idle key cannot overflow.
		intervals = min(intervals, cfg.Capacity/cfg.RefillRate+1)
		b.tokens = min(cfg.Capacity, b.tokens+intervals*cfg.RefillRate)
		b.refilledAt = b.refilledAt.Add(time.Duration(intervals) * cfg.RefillInterval)
	}
	if b.tokens == cfg.Capacity {
		b.refilledAt = now
	}

	if b.tokens < tokens {
		return b.tokens - tokens, b.refilledAt.Add(cfg.RefillInterval), nil
	}
	b.tokens -= tokens
	return b.tokens, b.refilledAt.Add(cfg.RefillInterval), nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Len returns the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Close stops the sweep. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.removeStale()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) removeStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, b := range s.buckets {
		if now.Sub(b.lastAccess) > s.staleAfter {
			delete(s.buckets, key)
		}
	}
}
