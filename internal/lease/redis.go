package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat_lease:"

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker shares leases across replicas.
type RedisLocker struct {
	cli *redis.Client
}

// NewRedisLocker connects and pings url, e.g. redis://localhost:6379/0.
func NewRedisLocker(ctx context.Context, url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLocker{cli: cli}, nil
}

func NewRedisLockerFromClient(cli *redis.Client) *RedisLocker {
	return &RedisLocker{cli: cli}
}

func (r *RedisLocker) Close() error {
	return r.cli.Close()
}

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error) {
	token := newToken()
	err := acquireLoop(ctx, wait, func() (bool, error) {
		ok, err := r.cli.SetNX(ctx, keyPrefix+key, token, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("redis setnx: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	return &redisLease{cli: r.cli, key: keyPrefix + key, token: token}, nil
}

type redisLease struct {
	cli   *redis.Client
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.cli, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
