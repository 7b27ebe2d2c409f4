// Package ledger keeps the per-schedule snooze counters.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"medimind/utils"

	"github.com/go-redis/redis/v8"
)

// Ledger counts snoozes per schedule id. A missing entry means no snooze is
// outstanding.
type Ledger interface {
	Count(ctx context.Context, scheduleID string) (int, error)
	// TryIncrement adds one to the count only while it is below budget.
	TryIncrement(ctx context.Context, scheduleID string, budget int) (count int, ok bool, err error)
	// Clear removes the entry and reports whether there was one.
	Clear(ctx context.Context, scheduleID string) (bool, error)
}

// tryIncrementScript runs as one redis command, so a concurrent clear can
// never interleave between the read and the write.
var tryIncrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local budget = tonumber(ARGV[1])
if current < budget then
  return {redis.call('INCR', KEYS[1]), 1}
end
return {current, 0}
`)

type RedisLedger struct {
	client *redis.Client
	prefix string
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: utils.SnoozeLedgerPrefix}
}

func (l *RedisLedger) key(scheduleID string) string {
	return l.prefix + scheduleID
}

func (l *RedisLedger) Count(ctx context.Context, scheduleID string) (int, error) {
	if scheduleID == "" {
		return 0, errors.New("ledger: empty schedule id")
	}
	n, err := l.client.Get(ctx, l.key(scheduleID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: read %s: %w", scheduleID, err)
	}
	return n, nil
}

func (l *RedisLedger) TryIncrement(ctx context.Context, scheduleID string, budget int) (int, bool, error) {
	if scheduleID == "" {
		return 0, false, errors.New("ledger: empty schedule id")
	}
	res, err := tryIncrementScript.Run(ctx, l.client, []string{l.key(scheduleID)}, budget).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("ledger: increment %s: %w", scheduleID, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("ledger: unexpected script reply %v", res)
	}
	count, _ := res[0].(int64)
	applied, _ := res[1].(int64)
	return int(count), applied == 1, nil
}

func (l *RedisLedger) Clear(ctx context.Context, scheduleID string) (bool, error) {
	if scheduleID == "" {
		return false, errors.New("ledger: empty schedule id")
	}
	n, err := l.client.Del(ctx, l.key(scheduleID)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger: clear %s: %w", scheduleID, err)
	}
	return n > 0, nil
}
