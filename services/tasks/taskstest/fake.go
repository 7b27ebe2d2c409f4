// Package taskstest provides an in-memory stand-in for the asynq client and
// inspector.
package taskstest

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

type Queued struct {
	ID        string
	Queue     string
	Type      string
	Payload   []byte
	ProcessAt time.Time
	ProcessIn time.Duration
}

// Queue records enqueued tasks by queue and id and rejects a duplicate id
// within a queue the way asynq does.
type Queue struct {
	mu       sync.Mutex
	tasks    map[string]Queued
	Enqueues int
	Deletes  int

	EnqueueErr error
	DeleteErr  error
}

func NewQueue() *Queue {
	return &Queue{tasks: map[string]Queued{}}
}

func key(queue, id string) string { return queue + "/" + id }

func (q *Queue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.EnqueueErr != nil {
		return nil, q.EnqueueErr
	}

	t := Queued{Queue: "default", Type: task.Type(), Payload: task.Payload()}
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			t.ID = o.Value().(string)
		case asynq.QueueOpt:
			t.Queue = o.Value().(string)
		case asynq.ProcessAtOpt:
			t.ProcessAt = o.Value().(time.Time)
		case asynq.ProcessInOpt:
			t.ProcessIn = o.Value().(time.Duration)
		}
	}
	if t.ID == "" {
		t.ID = time.Now().Format(time.RFC3339Nano)
	}
	if _, exists := q.tasks[key(t.Queue, t.ID)]; exists {
		return nil, asynq.ErrTaskIDConflict
	}
	q.tasks[key(t.Queue, t.ID)] = t
	q.Enqueues++
	return &asynq.TaskInfo{ID: t.ID, Queue: t.Queue, Type: t.Type, Payload: t.Payload}, nil
}

func (q *Queue) DeleteTask(queue, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.DeleteErr != nil {
		return q.DeleteErr
	}
	if _, ok := q.tasks[key(queue, id)]; !ok {
		return asynq.ErrTaskNotFound
	}
	delete(q.tasks, key(queue, id))
	q.Deletes++
	return nil
}

func (q *Queue) Get(queue, id string) (Queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[key(queue, id)]
	return t, ok
}

func (q *Queue) Len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.tasks {
		if t.Queue == queue {
			n++
		}
	}
	return n
}

// All returns the tasks of a queue.
func (q *Queue) All(queue string) []Queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Queued
	for _, t := range q.tasks {
		if t.Queue == queue {
			out = append(out, t)
		}
	}
	return out
}
