package deferral

import (
	"context"
	"fmt"

	"medimind/models"
	"medimind/services/ledger"
	"medimind/services/tasks"
	"medimind/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type SnoozeNotifier interface {
	NotifySnoozed(ctx context.Context, r models.SnoozedReminder) error
}

// Result lists which medications were re-raised and which had been
// resolved or re-tagged in the meantime.
type Result struct {
	Notified []string
	Dropped  []string
}

type Worker struct {
	registry *Registry
	ledger   ledger.Ledger
	notifier SnoozeNotifier
	logger   *zap.Logger
}

func NewWorker(registry *Registry, l ledger.Ledger, notifier SnoozeNotifier, logger *zap.Logger) *Worker {
	return &Worker{
		registry: registry,
		ledger:   l,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle re-notifies the items of p that still belong to this task and are
// still snoozed. Nothing is sent when none are left.
func (w *Worker) Handle(ctx context.Context, p models.SnoozePayload) (Result, error) {
	var res Result
	log := w.logger.With(zap.String("taskId", p.TaskID), zap.String("patientId", utils.SanitizeForLog(p.PatientID)))

	defer func() {
		if err := w.registry.Release(context.WithoutCancel(ctx), p.TaskID); err != nil {
			log.Warn("Failed to release deferral tags", zap.Error(err))
		}
	}()

	for _, it := range p.Items {
		owner, err := w.registry.Owner(ctx, Tag(it.ScheduleID, p.TimeMillis))
		if err != nil {
			return res, fmt.Errorf("read deferral tag: %w", err)
		}
		if owner != p.TaskID {
			res.Dropped = append(res.Dropped, it.MedicationID)
			continue
		}
		count, err := w.ledger.Count(ctx, it.ScheduleID)
		if err != nil {
			return res, fmt.Errorf("read snooze count: %w", err)
		}
		if count <= 0 {
			res.Dropped = append(res.Dropped, it.MedicationID)
			continue
		}
		res.Notified = append(res.Notified, it.MedicationID)
	}

	if len(res.Notified) == 0 {
		log.Info("Deferral has nothing left to re-raise", zap.Strings("dropped", res.Dropped))
		return res, nil
	}

	err := w.notifier.NotifySnoozed(ctx, models.SnoozedReminder{
		PatientID:     p.PatientID,
		TimeMillis:    p.TimeMillis,
		MedicationIDs: res.Notified,
	})
	if err != nil {
		return res, fmt.Errorf("send snoozed reminder: %w", err)
	}
	log.Info("Snoozed reminder sent", zap.Strings("medications", res.Notified), zap.Strings("dropped", res.Dropped))
	return res, nil
}

// ProcessTask adapts Handle to asynq. Failures are logged and not retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.DecodeSnooze(task)
	if err != nil {
		w.logger.Warn("Undecodable deferral payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if _, err := w.Handle(ctx, p); err != nil {
		w.logger.Error("Deferral failed", zap.String("taskId", p.TaskID), zap.Error(err))
	}
	return nil
}
