package identity

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "visitrome:client:"

// RedisRegistry keeps one key per client id that expires after ttl of
// inactivity. The value is the first-seen time in RFC 3339.
type RedisRegistry struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisRegistry connects to addr and verifies the connection.
func NewRedisRegistry(ctx context.Context, addr string, ttl time.Duration) (*RedisRegistry, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisRegistry{rdb: rdb, ttl: ttl}, nil
}

func (r *RedisRegistry) Save(ctx context.Context, clientID string, seenAt time.Time) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	key := redisKeyPrefix + clientID
	pipe := r.rdb.TxPipeline()
	pipe.SetNX(ctx, key, seenAt.UTC().Format(time.RFC3339), r.ttl)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save client id: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}
