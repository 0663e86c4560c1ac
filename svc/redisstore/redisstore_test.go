package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/quota"
	pkgredis "github.com/dmitrymomot/talktime/pkg/redis"
	"github.com/dmitrymomot/talktime/pkg/session"
	"github.com/dmitrymomot/talktime/pkg/usage"
	"github.com/dmitrymomot/talktime/svc/redisstore"
)

func testClient(t *testing.T) (*redis.Client, string) {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	client, err := pkgredis.Connect(context.Background(), pkgredis.Config{ConnectionURL: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, fmt.Sprintf("talktime-test:%d:", time.Now().UnixNano())
}

func liveSession(ttl time.Duration) *session.Session {
	now := time.Now().UTC()
	return &session.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Activity:  quota.ActivityPractice,
		Tier:      quota.TierBasic,
		State:     session.StateAuthorized,
		StartedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()
	store := redisstore.NewSessions(client, prefix)

	s := liveSession(time.Minute)
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, session.StateAuthorized, got.State)

	ended, err := store.Finish(ctx, s.ID, time.Now().UTC(), 42)
	require.NoError(t, err)
	assert.Equal(t, session.StateEnded, ended.State)
	assert.Equal(t, int64(42), ended.RecordedSeconds)

	_, err = store.Finish(ctx, s.ID, time.Now().UTC(), 42)
	require.ErrorIs(t, err, quota.ErrSessionAlreadyEnded)

	require.NoError(t, store.Reopen(ctx, s.ID))
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthorized, got.State)
	assert.Nil(t, got.EndedAt)

	ttl, err := client.TTL(ctx, prefix+"session:"+s.ID.String()).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestSessions_ConcurrentFinish(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()
	store := redisstore.NewSessions(client, prefix)

	s := liveSession(time.Minute)
	require.NoError(t, store.Create(ctx, s))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Finish(ctx, s.ID, time.Now().UTC(), 10); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, quota.ErrSessionAlreadyEnded)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestSessions_Expiry(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()
	store := redisstore.NewSessions(client, prefix)

	s := liveSession(time.Second)
	require.NoError(t, store.Create(ctx, s))

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, s.ID)
		return err == quota.ErrSessionNotFound
	}, 5*time.Second, 100*time.Millisecond)

	_, err := store.Finish(ctx, s.ID, time.Now(), 1)
	require.ErrorIs(t, err, quota.ErrSessionNotFound)
}

func TestSessions_InvalidInput(t *testing.T) {
	client, prefix := testClient(t)
	store := redisstore.NewSessions(client, prefix)

	require.ErrorIs(t, store.Create(context.Background(), &session.Session{ID: uuid.New()}), session.ErrInvalidSession)
}

func TestSections(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()
	store := redisstore.NewSections(client, prefix)
	user := uuid.New()
	day := usage.Day("2025-03-10")

	n, err := store.Count(ctx, user, "airport", day)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := int64(1); i <= 3; i++ {
		n, err = store.Increment(ctx, user, "airport", day)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err = store.Count(ctx, user, "airport", day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
