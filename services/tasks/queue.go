package tasks

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Remover is satisfied by *asynq.Inspector.
type Remover interface {
	DeleteTask(queue, id string) error
}

// DeleteIfPresent removes a queued task. A task or queue that does not exist
// is not an error.
func DeleteIfPresent(r Remover, queue, id string) error {
	err := r.DeleteTask(queue, id)
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}
