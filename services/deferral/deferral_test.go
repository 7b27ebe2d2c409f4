package deferral

import (
	"context"
	"errors"
	"testing"

	"medimind/models"
	"medimind/services/ledger"
	"medimind/services/tasks"
	"medimind/services/tasks/taskstest"
	"medimind/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	sent []models.SnoozedReminder
	err  error
}

func (n *recordingNotifier) NotifySnoozed(_ context.Context, r models.SnoozedReminder) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, r)
	return nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	tasks    *taskstest.Queue
	ledger   *ledger.RedisLedger
	notifier *recordingNotifier
	queue    *Queue
	worker   *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := NewRegistry(client)
	f := &fixture{
		mr:       mr,
		tasks:    taskstest.NewQueue(),
		ledger:   ledger.NewRedisLedger(client),
		notifier: &recordingNotifier{},
	}
	f.queue = NewQueue(f.tasks, f.tasks, reg, zap.NewNop())
	f.worker = NewWorker(reg, f.ledger, f.notifier, zap.NewNop())
	return f
}

func (f *fixture) payload(t *testing.T, taskID string) models.SnoozePayload {
	t.Helper()
	q, ok := f.tasks.Get(utils.QueueSnooze, taskID)
	require.True(t, ok, "task %s queued", taskID)
	p, err := tasks.DecodeSnooze(asynq.NewTask(q.Type, q.Payload))
	require.NoError(t, err)
	return p
}

func (f *fixture) snooze(t *testing.T, scheduleID string) {
	t.Helper()
	_, ok, err := f.ledger.TryIncrement(context.Background(), scheduleID, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

const fired = int64(1_700_000_000_000)

func TestTag(t *testing.T) {
	assert.Equal(t, "snooze_s-1_1700000000000", Tag("s-1", fired))
}

func TestEnqueueOneTaskForAllItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.queue.Enqueue(ctx, SnoozeRequest{
		PatientID:  "p-1",
		TimeMillis: fired,
		Items: []models.SnoozeItem{
			{MedicationID: "m-1", ScheduleID: "s-1"},
			{MedicationID: "m-2", ScheduleID: "s-2"},
			{MedicationID: "m-3"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.tasks.Len(utils.QueueSnooze))

	q, _ := f.tasks.Get(utils.QueueSnooze, id)
	assert.Equal(t, tasks.TypeReminderSnooze, q.Type)
	assert.Equal(t, Delay, q.ProcessIn)
	assert.Len(t, f.payload(t, id).Items, 2)

	owner, err := f.worker.registry.Owner(ctx, Tag("s-1", fired))
	require.NoError(t, err)
	assert.Equal(t, id, owner)
}

func TestEnqueueRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.queue.Enqueue(context.Background(), SnoozeRequest{PatientID: "p-1", Items: []models.SnoozeItem{{MedicationID: "m"}}})
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Equal(t, 0, f.tasks.Len(utils.QueueSnooze))
}

func TestCancelRemovesTaskWhenLastTagGoes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.queue.Enqueue(ctx, SnoozeRequest{
		PatientID:  "p-1",
		TimeMillis: fired,
		Items:      []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}, {MedicationID: "m-2", ScheduleID: "s-2"}},
	})
	require.NoError(t, err)

	require.NoError(t, f.queue.Cancel(ctx, Tag("s-1", fired)))
	_, ok := f.tasks.Get(utils.QueueSnooze, id)
	assert.True(t, ok, "task still carries s-2")

	require.NoError(t, f.queue.Cancel(ctx, Tag("s-2", fired)))
	_, ok = f.tasks.Get(utils.QueueSnooze, id)
	assert.False(t, ok)

	assert.NoError(t, f.queue.Cancel(ctx, Tag("unknown", fired)))
}

func TestRetagMovesItemAndDropsOrphan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := SnoozeRequest{PatientID: "p-1", TimeMillis: fired, Items: []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}}}

	first, err := f.queue.Enqueue(ctx, req)
	require.NoError(t, err)
	second, err := f.queue.Enqueue(ctx, req)
	require.NoError(t, err)

	_, ok := f.tasks.Get(utils.QueueSnooze, first)
	assert.False(t, ok, "first task lost its only tag")
	_, ok = f.tasks.Get(utils.QueueSnooze, second)
	assert.True(t, ok)
}

func TestWorkerNotifiesSurvivors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.snooze(t, "s-1")
	f.snooze(t, "s-2")

	id, err := f.queue.Enqueue(ctx, SnoozeRequest{
		PatientID:  "p-1",
		TimeMillis: fired,
		Items:      []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}, {MedicationID: "m-2", ScheduleID: "s-2"}},
	})
	require.NoError(t, err)

	res, err := f.worker.Handle(ctx, f.payload(t, id))
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-2"}, res.Notified)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{"m-1", "m-2"}, f.notifier.sent[0].MedicationIDs)
	assert.Equal(t, fired, f.notifier.sent[0].TimeMillis)

	assert.False(t, f.mr.Exists(utils.SnoozeTagPrefix+Tag("s-1", fired)), "tags released after run")
	assert.False(t, f.mr.Exists(utils.SnoozeTaskPrefix+id))
}

func TestWorkerSkipsResolvedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.snooze(t, "s-1")
	f.snooze(t, "s-2")

	id, err := f.queue.Enqueue(ctx, SnoozeRequest{
		PatientID:  "p-1",
		TimeMillis: fired,
		Items:      []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}, {MedicationID: "m-2", ScheduleID: "s-2"}},
	})
	require.NoError(t, err)
	p := f.payload(t, id)

	// s-1 answered before the task ran; s-2 ledger cleared by another path
	require.NoError(t, f.queue.Cancel(ctx, Tag("s-1", fired)))
	_, err = f.ledger.Clear(ctx, "s-2")
	require.NoError(t, err)

	res, err := f.worker.Handle(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, res.Notified)
	assert.ElementsMatch(t, []string{"m-1", "m-2"}, res.Dropped)
	assert.Empty(t, f.notifier.sent)
}

func TestWorkerProcessTask(t *testing.T) {
	f := newFixture(t)
	err := f.worker.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeReminderSnooze, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	f.notifier.err = errors.New("fcm down")
	f.snooze(t, "s-1")
	id, err := f.queue.Enqueue(context.Background(), SnoozeRequest{
		PatientID: "p-1", TimeMillis: fired, Items: []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}},
	})
	require.NoError(t, err)
	q, _ := f.tasks.Get(utils.QueueSnooze, id)
	assert.NoError(t, f.worker.ProcessTask(context.Background(), asynq.NewTask(q.Type, q.Payload)))
}
