package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client), mr
}

func TestCountUnsetIsZero(t *testing.T) {
	l, _ := newTestLedger(t)
	n, err := l.Count(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTryIncrementRespectsBudget(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()

	n, ok, err := l.TryIncrement(ctx, "sched-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1", mustGet(t, mr, "snoozeprefs:sched-1"))

	n, ok, err = l.TryIncrement(ctx, "sched-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, n)

	n, err = l.Count(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClearReportsOnce(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()

	_, _, err := l.TryIncrement(ctx, "sched-1", 1)
	require.NoError(t, err)

	removed, err := l.Clear(ctx, "sched-1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, mr.Exists("snoozeprefs:sched-1"))

	removed, err = l.Clear(ctx, "sched-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestConcurrentIncrementsNeverExceedBudget(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := l.TryIncrement(ctx, "sched-1", 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	n, err := l.Count(ctx, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmptyScheduleIDRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Count(ctx, "")
	assert.Error(t, err)
	_, _, err = l.TryIncrement(ctx, "", 1)
	assert.Error(t, err)
	_, err = l.Clear(ctx, "")
	assert.Error(t, err)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
