package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfront/storefront/internal/ports"
)

// idleFailureTTL bounds how long failures below the threshold are remembered.
const idleFailureTTL = 24 * time.Hour

// recordFailureScript increments the counter and, once the threshold is reached, stamps
// locked_until and shortens the key's life to the lockout window.
// KEYS[1] hash key; ARGV: threshold, locked_until unix, lock window ms, idle ttl ms.
var recordFailureScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], 'failed_count', 1)
if n >= tonumber(ARGV[1]) then
	redis.call('HSET', KEYS[1], 'locked_until', ARGV[2])
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
else
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return n
`)

// RedisLockoutStore counts failed logins per email in a Redis hash.
type RedisLockoutStore struct {
	client *redis.Client
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func lockoutKey(key string) string {
	return keyPrefix + "lockout:" + key
}

type lockoutHash struct {
	FailedCount int   `redis:"failed_count"`
	LockedUntil int64 `redis:"locked_until"`
}

func (h lockoutHash) state() ports.LockoutState {
	out := ports.LockoutState{FailedCount: h.FailedCount}
	if h.LockedUntil > 0 {
		t := time.Unix(h.LockedUntil, 0).UTC()
		out.LockedUntil = &t
	}
	return out
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	var h lockoutHash
	if err := s.client.HGetAll(ctx, lockoutKey(key)).Scan(&h); err != nil {
		return ports.LockoutState{}, err
	}
	return h.state(), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	lockedUntil := now.Add(lockoutWindow).UTC()
	count, err := recordFailureScript.Run(ctx, s.client,
		[]string{lockoutKey(key)},
		threshold, lockedUntil.Unix(), lockoutWindow.Milliseconds(), idleFailureTTL.Milliseconds(),
	).Int()
	if err != nil {
		return ports.LockoutState{}, err
	}
	h := lockoutHash{FailedCount: count}
	if count >= threshold {
		h.LockedUntil = lockedUntil.Unix()
	}
	return h.state(), nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutKey(key)).Err()
}
