// Package redis connects go-redis clients with retries.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds connection settings loaded from REDIS_* variables. KeyPrefix
// namespaces every key the service writes.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"talktime:"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

var (
	ErrFailedToParseRedisConnString = errors.New("redis.errors.parse_url")
	ErrRedisNotReady                = errors.New("redis.errors.not_ready")
	ErrHealthcheckFailed            = errors.New("redis.errors.healthcheck_failed")
)

// Connect returns a client once the server answers PING.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var lastErr error
	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// Healthcheck pings the server.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
