package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// consume refills and takes tokens in one round trip. Times are
// milliseconds. It returns {remaining, reset_at}.
var consume = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refilled')
local tokens = tonumber(state[1])
local refilled = tonumber(state[2])
if tokens == nil or refilled == nil then
	tokens = capacity
	refilled = now
end

local intervals = math.floor((now - refilled) / interval)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals * rate)
	refilled = refilled + intervals * interval
end
if tokens >= capacity then
	tokens = capacity
	refilled = now
end

local remaining = tokens - n
if remaining >= 0 then
	tokens = remaining
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled', refilled)
redis.call('PEXPIRE', KEYS[1], ttl)
return {remaining, refilled + interval}
`)

// RedisStore keeps buckets in Redis so every replica shares them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore keeps buckets under prefix + "ratelimit:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "ratelimit:", now: time.Now}
}

// ConsumeTokens refills and spends in a single script call. Buckets expire
// once they would be full again.
func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	// A bucket untouched for this long is full again.
	refills := cfg.Capacity/cfg.RefillRate + 1
	ttl := time.Duration(refills+1) * cfg.RefillInterval

	res, err := consume.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity,
		cfg.RefillRate,
		cfg.RefillInterval.Milliseconds(),
		s.now().UnixMilli(),
		tokens,
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

// Reset deletes the bucket key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
