// Package redisstore keeps live sessions and role-play section counters in
// Redis. Both expire on their own, so abandoned sessions and old counters
// need no sweeper.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/session"
)

const (
	fieldState = "state"
	fieldData  = "data"
)

// swapState replaces the session document only if its state still equals
// ARGV[1]. It returns "missing", "swapped" or the state it found. HSET keeps
// the key's expiry.
var swapState = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
	return 'missing'
end
if state ~= ARGV[1] then
	return state
end
redis.call('HSET', KEYS[1], 'state', ARGV[2], 'data', ARGV[3])
return 'swapped'
`)

// Sessions implements session.Store as one hash per session with an
// absolute expiry at Session.ExpiresAt.
type Sessions struct {
	client redis.UniversalClient
	prefix string
}

// NewSessions keeps sessions under prefix + "session:".
func NewSessions(client redis.UniversalClient, prefix string) *Sessions {
	return &Sessions{client: client, prefix: prefix}
}

func (s *Sessions) key(id uuid.UUID) string {
	return s.prefix + "session:" + id.String()
}

// Create writes the session hash and sets its absolute expiry.
func (s *Sessions) Create(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == uuid.Nil || sess.ExpiresAt.IsZero() {
		return session.ErrInvalidSession
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	key := s.key(sess.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldState, string(sess.State), fieldData, data)
		pipe.ExpireAt(ctx, key, sess.ExpiresAt)
		return nil
	})
	return err
}

// Get returns quota.ErrSessionNotFound once the key has expired.
func (s *Sessions) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	data, err := s.client.HGet(ctx, s.key(id), fieldData).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, quota.ErrSessionNotFound
		}
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Finish ends the session if it is still authorized. Concurrent calls race
// on the swap script and only one wins.
func (s *Sessions) Finish(ctx context.Context, id uuid.UUID, endedAt time.Time, seconds int64) (*session.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.End(endedAt, seconds); err != nil {
		return nil, err
	}
	if err := s.swap(ctx, sess, session.StateAuthorized); err != nil {
		return nil, err
	}
	return sess, nil
}

// Reopen moves an ended session back to authorized. The key keeps its expiry.
func (s *Sessions) Reopen(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State != session.StateEnded {
		return nil
	}
	sess.Reopen()
	return s.swap(ctx, sess, session.StateEnded)
}

func (s *Sessions) swap(ctx context.Context, sess *session.Session, expected session.State) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	res, err := swapState.Run(ctx, s.client, []string{s.key(sess.ID)},
		string(expected), string(sess.State), data,
	).Text()
	if err != nil {
		return err
	}

	switch res {
	case "swapped":
		return nil
	case "missing":
		return quota.ErrSessionNotFound
	case string(session.StateEnded):
		return quota.ErrSessionAlreadyEnded
	default:
		return fmt.Errorf("%w: found %s, expected %s", session.ErrInvalidTransition, res, expected)
	}
}
