package tasks

import (
	"encoding/json"
	"time"

	"medimind/models"
	"medimind/utils"

	"github.com/hibiken/asynq"
)

const (
	TypeReminderTrigger = "reminder:trigger"
	TypeReminderSnooze  = "reminder:snooze"
)

// NewTriggerTask builds the alarm task for one firing. taskID is the alarm
// registration key, so re-arming the same instant replaces instead of duplicating.
func NewTriggerTask(payload models.TriggerPayload, taskID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderTrigger, b)
	opts := []asynq.Option{
		asynq.TaskID(taskID),
		asynq.Queue(utils.QueueAlarms),
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(0),
	}

	return task, opts, nil
}

// NewSnoozeTask builds the deferral task for a batch of unconfirmed medications.
func NewSnoozeTask(payload models.SnoozePayload, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSnooze, b)
	opts := []asynq.Option{
		asynq.TaskID(payload.TaskID),
		asynq.Queue(utils.QueueSnooze),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	}

	return task, opts, nil
}

func DecodeTrigger(task *asynq.Task) (models.TriggerPayload, error) {
	var p models.TriggerPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}

func DecodeSnooze(task *asynq.Task) (models.SnoozePayload, error) {
	var p models.SnoozePayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
