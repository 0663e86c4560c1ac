// Package ratelimiter throttles bursts of requests per key with a token
// bucket. Each key starts with Capacity tokens and regains RefillRate tokens
// every RefillInterval.
package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig     = errors.New("ratelimiter.errors.invalid_config")
	ErrInvalidTokenCount = errors.New("ratelimiter.errors.invalid_token_count")
	ErrInvalidKey        = errors.New("ratelimiter.errors.invalid_key")
)

// Config is loaded from RATE_LIMIT_* variables.
type Config struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"20"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"3s"`
}

// Validate reports a non-positive capacity, rate or interval.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Store keeps bucket state.
type Store interface {
	// ConsumeTokens refills the bucket for the elapsed time, then takes
	// tokens from it. A negative remaining means the request is denied and
	// nothing was taken.
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)

	// Reset forgets the bucket.
	Reset(ctx context.Context, key string) error
}

// Result describes one check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the request may proceed.
func (r *Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter is how long to wait before the next token arrives, zero when
// allowed.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(0, r.ResetAt.Sub(now))
}

// Bucket applies one Config to many keys.
type Bucket struct {
	store Store
	cfg   Config
}

// NewBucket validates cfg. Panics on a nil store.
func NewBucket(store Store, cfg Config) (*Bucket, error) {
	if store == nil {
		panic("ratelimiter: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, cfg: cfg}, nil
}

// Allow spends one token from key's bucket.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN spends n tokens from key's bucket. A denied call spends nothing.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: b.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset refills key's bucket.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
