package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/session"
)

func authorized(expiresAt time.Time) *session.Session {
	return &session.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Activity:  quota.ActivityPractice,
		State:     session.StateAuthorized,
		StartedAt: now,
		ExpiresAt: expiresAt,
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("finish then finish again", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		s := authorized(time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, s))

		ended, err := store.Finish(ctx, s.ID, now, 42)
		require.NoError(t, err)
		assert.Equal(t, session.StateEnded, ended.State)
		assert.Equal(t, int64(42), ended.RecordedSeconds)
		require.NotNil(t, ended.EndedAt)

		_, err = store.Finish(ctx, s.ID, now, 42)
		require.ErrorIs(t, err, quota.ErrSessionAlreadyEnded)
	})

	t.Run("reopen after finish", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		s := authorized(time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, s))

		_, err := store.Finish(ctx, s.ID, now, 42)
		require.NoError(t, err)
		require.NoError(t, store.Reopen(ctx, s.ID))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StateAuthorized, got.State)
		assert.Nil(t, got.EndedAt)
	})

	t.Run("rejects invalid sessions", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		require.ErrorIs(t, store.Create(ctx, nil), session.ErrInvalidSession)
		require.ErrorIs(t, store.Create(ctx, &session.Session{}), session.ErrInvalidSession)
	})

	t.Run("unknown ids", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		_, err := store.Get(ctx, uuid.New())
		require.ErrorIs(t, err, quota.ErrSessionNotFound)
		_, err = store.Finish(ctx, uuid.New(), now, 1)
		require.ErrorIs(t, err, quota.ErrSessionNotFound)
		require.ErrorIs(t, store.Reopen(ctx, uuid.New()), quota.ErrSessionNotFound)
	})

	t.Run("finishing a requested session is an invalid transition", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		s := authorized(time.Now().Add(time.Hour))
		s.State = session.StateRequested
		require.NoError(t, store.Create(ctx, s))

		_, err := store.Finish(ctx, s.ID, now, 1)
		require.ErrorIs(t, err, session.ErrInvalidTransition)
	})

	t.Run("background cleanup drops expired sessions", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore(session.WithCleanupInterval(10 * time.Millisecond))
		defer store.Close()

		require.NoError(t, store.Create(ctx, authorized(time.Now().Add(-time.Second))))
		require.NoError(t, store.Create(ctx, authorized(time.Now().Add(time.Hour))))

		assert.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore(session.WithCleanupInterval(time.Minute))
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, session.CanTransition(session.StateRequested, session.StateAuthorized))
	assert.True(t, session.CanTransition(session.StateRequested, session.StateRejected))
	assert.True(t, session.CanTransition(session.StateAuthorized, session.StateEnded))

	assert.False(t, session.CanTransition(session.StateRequested, session.StateEnded))
	assert.False(t, session.CanTransition(session.StateRejected, session.StateAuthorized))
	assert.False(t, session.CanTransition(session.StateEnded, session.StateAuthorized))

	assert.True(t, session.StateEnded.Terminal())
	assert.True(t, session.StateRejected.Terminal())
	assert.False(t, session.StateAuthorized.Terminal())
}
