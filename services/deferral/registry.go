package deferral

import (
	"context"
	"fmt"
	"time"

	"medimind/utils"

	"github.com/go-redis/redis/v8"
)

// Tag names the deferral of one schedule slot of one firing.
func Tag(scheduleID string, timeMillis int64) string {
	return fmt.Sprintf("snooze_%s_%d", scheduleID, timeMillis)
}

// assignScript points every tag in ARGV[3..] at task ARGV[1]. Tags that
// belonged to another task are taken from it; task ids left without tags
// are returned so their queued work can be dropped.
var assignScript = redis.NewScript(`
local task = ARGV[1]
local ttl = tonumber(ARGV[2])
local tagPrefix = KEYS[1]
local taskPrefix = KEYS[2]
local orphaned = {}
for i = 3, #ARGV do
  local tag = ARGV[i]
  local old = redis.call('GET', tagPrefix .. tag)
  if old and old ~= task then
    redis.call('SREM', taskPrefix .. old, tag)
    if redis.call('SCARD', taskPrefix .. old) == 0 then
      table.insert(orphaned, old)
    end
  end
  redis.call('SET', tagPrefix .. tag, task, 'PX', ttl)
  redis.call('SADD', taskPrefix .. task, tag)
end
redis.call('PEXPIRE', taskPrefix .. task, ttl)
return orphaned
`)

// unassignScript removes one tag and returns its task id plus 1 when that
// task has no tags left.
var unassignScript = redis.NewScript(`
local tagPrefix = KEYS[1]
local taskPrefix = KEYS[2]
local tag = ARGV[1]
local task = redis.call('GET', tagPrefix .. tag)
if not task then
  return {'', 0}
end
redis.call('DEL', tagPrefix .. tag)
redis.call('SREM', taskPrefix .. task, tag)
if redis.call('SCARD', taskPrefix .. task) == 0 then
  return {task, 1}
end
return {task, 0}
`)

// releaseScript forgets a finished task and the tags still pointing at it.
var releaseScript = redis.NewScript(`
local tagPrefix = KEYS[1]
local taskPrefix = KEYS[2]
local task = ARGV[1]
local tags = redis.call('SMEMBERS', taskPrefix .. task)
for _, tag in ipairs(tags) do
  if redis.call('GET', tagPrefix .. tag) == task then
    redis.call('DEL', tagPrefix .. tag)
  end
end
redis.call('DEL', taskPrefix .. task)
return #tags
`)

// Registry maps deferral tags to the queued task that carries them.
type Registry struct {
	client *redis.Client
}

func NewRegistry(client *redis.Client) *Registry {
	return &Registry{client: client}
}

func (r *Registry) keys() []string {
	return []string{utils.SnoozeTagPrefix, utils.SnoozeTaskPrefix}
}

// Assign moves tags onto taskID and returns the ids of tasks that lost
// their last tag.
func (r *Registry) Assign(ctx context.Context, taskID string, ttl time.Duration, tags []string) ([]string, error) {
	args := make([]interface{}, 0, len(tags)+2)
	args = append(args, taskID, ttl.Milliseconds())
	for _, t := range tags {
		args = append(args, t)
	}
	res, err := assignScript.Run(ctx, r.client, r.keys(), args...).StringSlice()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("assign deferral tags: %w", err)
	}
	return res, nil
}

// Unassign removes tag. empty reports that its task carries nothing else.
func (r *Registry) Unassign(ctx context.Context, tag string) (taskID string, empty bool, err error) {
	res, err := unassignScript.Run(ctx, r.client, r.keys(), tag).Slice()
	if err != nil {
		return "", false, fmt.Errorf("unassign deferral tag: %w", err)
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("unassign deferral tag: unexpected reply %v", res)
	}
	taskID, _ = res[0].(string)
	n, _ := res[1].(int64)
	return taskID, n == 1, nil
}

// Owner returns the task id a tag currently belongs to, or "".
func (r *Registry) Owner(ctx context.Context, tag string) (string, error) {
	id, err := r.client.Get(ctx, utils.SnoozeTagPrefix+tag).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

func (r *Registry) Release(ctx context.Context, taskID string) error {
	if err := releaseScript.Run(ctx, r.client, r.keys(), taskID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release deferral task: %w", err)
	}
	return nil
}
