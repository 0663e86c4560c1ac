// Package mongo connects mongo-driver clients with retries.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds client settings loaded from MONGODB_* variables.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"2s"`
}

var (
	ErrFailedToConnectToMongo = errors.New("mongo.errors.connect_failed")
	ErrHealthcheckFailed      = errors.New("mongo.errors.healthcheck_failed")
)

// Connect returns a client once the deployment answers a ping. Retryable
// writes stay on; the ledgers rely on single-document atomic updates.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryWrites(true).
		SetRetryReads(true)

	var lastErr error
	for range max(cfg.RetryAttempts, 1) {
		client, err := mongo.Connect(opts)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.WithoutCancel(ctx))
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// Healthcheck pings the deployment.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
