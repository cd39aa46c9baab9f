// Package redislock coordinates rating runs across processes.
//
// The database already serializes concurrent runs with an advisory lock,
// but that only helps once both runs are inside a transaction. Cron-driven
// tools use this to skip a run entirely when another host is mid-replay.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RatingKey is the conventional key for rating scheduler locks.
const RatingKey = "magnetar:rating_lock"

var ErrLockHeld = magnetar.Statusf(409, "Lock is held by another process")

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was re-acquired elsewhere is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

type Client struct {
	client *redis.Client
}

func New(ctx context.Context) (*Client, error) {
	rdb := redis.NewClient(config.C.Cache.GenOptions())
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, magnetar.WrapError(err, "Couldn't connect to Redis")
	}
	return &Client{rdb}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Lock is one held lease. It expires on its own after the TTL, so a
// crashed holder never wedges the schedulers.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock or fails fast with ErrLockHeld.
func (c *Client) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't acquire lock")
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{c.client, key, token}, nil
}

// Release drops the lease. Releasing a lock that already expired is not an
// error; someone else's lease is never touched.
func (l *Lock) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return magnetar.WrapError(err, "Couldn't release lock")
	}
	return nil
}
