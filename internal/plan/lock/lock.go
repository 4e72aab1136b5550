package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrHeld = errors.New("sync_lock_held")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker keeps two sync runs against the same account from overlapping.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, prefix: "plansync:lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

// NopLocker is used when no redis address is configured.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
