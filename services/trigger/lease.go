package trigger

import (
	"context"
	"time"

	"medimind/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// LeaseStore hands out short exclusive holds on a firing so two deliveries
// of the same alarm do not both run.
type LeaseStore interface {
	// Acquire returns held=false when someone else owns key. release is
	// always safe to call.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), held bool, err error)
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisLeaseStore struct {
	client *redis.Client
}

func NewRedisLeaseStore(client *redis.Client) *RedisLeaseStore {
	return &RedisLeaseStore{client: client}
}

func (s *RedisLeaseStore) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	redisKey := utils.TriggerLeasePrefix + key
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		// the caller's context may already be done
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.client, []string{redisKey}, token).Err()
	}
	return release, true, nil
}
