package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/redis"
)

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://localhost"})
	require.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	require.ErrorIs(t, err, redis.ErrRedisNotReady)
}

func TestConnect_Live(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	client, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: url, RetryAttempts: 1})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, redis.Healthcheck(client)(context.Background()))
}
