package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/talktime/pkg/usage"
)

// DefaultSectionRetention keeps a day's counter past any time zone's midnight.
const DefaultSectionRetention = 48 * time.Hour

// Sections implements section.Store with one INCR counter per
// (user, section, day).
type Sections struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewSections keeps counters under prefix + "section:".
func NewSections(client redis.UniversalClient, prefix string) *Sections {
	return &Sections{client: client, prefix: prefix, retention: DefaultSectionRetention}
}

func (s *Sections) key(userID uuid.UUID, section string, day usage.Day) string {
	return s.prefix + "section:" + userID.String() + ":" + day.String() + ":" + section
}

// Count returns zero for a missing or expired counter.
func (s *Sections) Count(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	n, err := s.client.Get(ctx, s.key(userID, section, day)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Increment bumps the counter and refreshes its retention.
func (s *Sections) Increment(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	key := s.key(userID, section, day)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
