package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter counters away from anything else sharing the
// Redis database.
const keyPrefix = "ratelimit:"

// incrScript performs the whole check-and-increment as one atomic unit on
// the Redis side: increment, arm the window TTL on first hit, read the TTL
// back. Returns {count, pttl_ms}.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// undoScript decrements only while the window key still exists, so late
// undos after expiry cannot seed a negative counter.
var undoScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("DECR", KEYS[1])
end
return 0
`)

// RedisStore enforces limits cluster-wide via a shared Redis counter. This is
// the deployment-correct Store for anything running more than one replica.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrScript.Run(ctx, s.rdb, []string{keyPrefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit incr for %q: %w", key, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit incr for %q: unexpected script reply %v", key, res)
	}
	count, _ := vals[0].(int64)
	ttlMillis, _ := vals[1].(int64)

	return count, time.Now().Add(time.Duration(ttlMillis) * time.Millisecond), nil
}

func (s *RedisStore) Undo(ctx context.Context, key string) error {
	if err := undoScript.Run(ctx, s.rdb, []string{keyPrefix + key}).Err(); err != nil {
		return fmt.Errorf("ratelimit undo for %q: %w", key, err)
	}
	return nil
}
