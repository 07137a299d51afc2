// ratelimit/redis.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript keeps the fixed-window semantics of Memory in one round trip.
// INCR preserves the key's TTL, so the window end never moves.
var admitScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  redis.call('SET', KEYS[1], '1', 'PX', ARGV[2])
  return 1
end
if tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

// Redis is a Store shared by every process pointing at the same server.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	// Client is an existing Redis client. If nil, URL is used.
	Client redis.UniversalClient

	// URL is a redis:// or rediss:// connection URL.
	URL string

	// KeyPrefix is prepended to all keys.
	// Default: "ratelimit:".
	KeyPrefix string

	// DialTimeout bounds the initial ping.
	// Default: 5 seconds.
	DialTimeout time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

// ConnectRedis creates a Redis store and verifies the connection.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := cfg.Client
	if client == nil {
		if cfg.URL == "" {
			return nil, errors.New("ratelimit: redis url required")
		}
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		if cfg.Client == nil {
			_ = client.Close()
		}
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}

	return NewRedis(client, cfg.KeyPrefix), nil
}

// Admit implements Store.
func (r *Redis) Admit(ctx context.Context, id string, max int, window time.Duration) (bool, error) {
	if err := validate(max, window); err != nil {
		return false, err
	}
	n, err := admitScript.Run(ctx, r.client, []string{r.keyPrefix + id}, max, window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis admit: %w", err)
	}
	return n == 1, nil
}

// Reset implements Store.
func (r *Redis) Reset(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis reset: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable; used by the health check.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
