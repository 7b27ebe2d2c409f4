// Package deferral schedules the delayed re-notification of snoozed
// medications and runs it when it comes due.
package deferral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medimind/models"
	"medimind/services/tasks"
	"medimind/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	Delay = 15 * time.Minute
	// tags outlive their task by this much so a late worker can still read them
	tagGrace = time.Hour
)

var ErrNoItems = errors.New("deferral needs at least one item with a schedule id")

type SnoozeRequest struct {
	PatientID  string
	TimeMillis int64
	Items      []models.SnoozeItem
}

type Scheduler interface {
	Enqueue(ctx context.Context, req SnoozeRequest) (string, error)
	Cancel(ctx context.Context, tag string) error
}

type Queue struct {
	enqueuer tasks.Enqueuer
	remover  tasks.Remover
	registry *Registry
	delay    time.Duration
	logger   *zap.Logger
}

func NewQueue(enqueuer tasks.Enqueuer, remover tasks.Remover, registry *Registry, logger *zap.Logger) *Queue {
	return &Queue{
		enqueuer: enqueuer,
		remover:  remover,
		registry: registry,
		delay:    Delay,
		logger:   logger,
	}
}

// Enqueue schedules one task for all items and tags each item with it. An
// item already tagged by an earlier task moves to this one.
func (q *Queue) Enqueue(ctx context.Context, req SnoozeRequest) (string, error) {
	items := make([]models.SnoozeItem, 0, len(req.Items))
	tags := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ScheduleID == "" {
			continue
		}
		items = append(items, it)
		tags = append(tags, Tag(it.ScheduleID, req.TimeMillis))
	}
	if req.PatientID == "" || len(items) == 0 {
		return "", ErrNoItems
	}

	payload := models.SnoozePayload{
		TaskID:     "snooze:" + uuid.NewString(),
		PatientID:  req.PatientID,
		TimeMillis: req.TimeMillis,
		Items:      items,
	}
	task, opts, err := tasks.NewSnoozeTask(payload, q.delay)
	if err != nil {
		return "", fmt.Errorf("failed to build deferral task: %w", err)
	}
	if _, err := q.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue deferral: %w", err)
	}

	orphaned, err := q.registry.Assign(ctx, payload.TaskID, q.delay+tagGrace, tags)
	if err != nil {
		if delErr := tasks.DeleteIfPresent(q.remover, utils.QueueSnooze, payload.TaskID); delErr != nil {
			q.logger.Error("Failed to drop untagged deferral task", zap.String("taskId", payload.TaskID), zap.Error(delErr))
		}
		return "", err
	}
	for _, id := range orphaned {
		q.drop(id)
	}

	q.logger.Info("Deferral scheduled",
		zap.String("taskId", payload.TaskID),
		zap.String("patientId", utils.SanitizeForLog(req.PatientID)),
		zap.Strings("medications", payload.MedicationIDs()),
		zap.Strings("tags", tags),
		zap.Duration("in", q.delay))
	return payload.TaskID, nil
}

// Cancel withdraws one tag. The task is removed once nothing is tagged
// with it any more.
func (q *Queue) Cancel(ctx context.Context, tag string) error {
	taskID, empty, err := q.registry.Unassign(ctx, tag)
	if err != nil {
		return err
	}
	if taskID != "" && empty {
		q.drop(taskID)
		if err := q.registry.Release(ctx, taskID); err != nil {
			q.logger.Warn("Failed to release deferral task", zap.String("taskId", taskID), zap.Error(err))
		}
	}
	return nil
}

func (q *Queue) drop(taskID string) {
	if err := tasks.DeleteIfPresent(q.remover, utils.QueueSnooze, taskID); err != nil {
		q.logger.Warn("Failed to remove deferral task", zap.String("taskId", taskID), zap.Error(err))
		return
	}
	q.logger.Debug("Deferral task removed", zap.String("taskId", taskID))
}
