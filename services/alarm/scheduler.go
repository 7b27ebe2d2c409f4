// Package alarm arms the exact-time reminder alarms of a patient.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	alarmRepo "medimind/database/repository/alarm"
	"medimind/models"
	"medimind/services/tasks"
	"medimind/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrExactAlarmNotPermitted = errors.New("exact alarms are not permitted for this patient")
	ErrInvalidAlarm           = errors.New("patient id and a positive trigger time are required")
	ErrNotFound               = alarmRepo.ErrNotFound
)

// Devices is what the scheduler needs to know about the patient's phone.
type Devices interface {
	CanScheduleExact(ctx context.Context, patientID string) (bool, error)
	Location(ctx context.Context, patientID string) *time.Location
}

type PermissionRequester interface {
	RequestExactAlarmPermission(ctx context.Context, patientID string) error
}

type DailySchedules interface {
	GetDailySchedule(ctx context.Context, patientID string) ([]models.DailyScheduleItem, error)
}

type Service interface {
	ScheduleAlarm(ctx context.Context, patientID string, triggerMillis int64) (*models.AlarmRegistration, error)
	CancelAlarm(ctx context.Context, patientID string, triggerMillis int64) error
	ListAlarms(ctx context.Context, patientID string) ([]models.AlarmRegistration, error)
	ArmDaily(ctx context.Context, patientID string) ([]models.AlarmRegistration, error)
}

type Scheduler struct {
	enqueuer  tasks.Enqueuer
	remover   tasks.Remover
	repo      alarmRepo.AlarmRepository
	devices   Devices
	requester PermissionRequester
	daily     DailySchedules
	logger    *zap.Logger
	now       func() time.Time
}

func NewScheduler(
	enqueuer tasks.Enqueuer,
	remover tasks.Remover,
	repo alarmRepo.AlarmRepository,
	devices Devices,
	requester PermissionRequester,
	daily DailySchedules,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		enqueuer:  enqueuer,
		remover:   remover,
		repo:      repo,
		devices:   devices,
		requester: requester,
		daily:     daily,
		logger:    logger,
		now:       time.Now,
	}
}

// RegistrationKey identifies one alarm of one patient. Two registrations with
// the same key are the same alarm.
func RegistrationKey(patientID string, triggerMillis int64) string {
	return fmt.Sprintf("alarm:%s:%d", patientID, triggerMillis)
}

// ScheduleAlarm arms an exact alarm at triggerMillis, replacing any alarm
// already registered for the same patient and instant. Times in the past are
// armed as given and fire right away.
func (s *Scheduler) ScheduleAlarm(ctx context.Context, patientID string, triggerMillis int64) (*models.AlarmRegistration, error) {
	return s.arm(ctx, patientID, triggerMillis, "")
}

// ScheduleDailyAlarm arms the firing of a daily slot. clock travels with the
// task so the firing queries and re-arms the slot's own wall-clock time.
func (s *Scheduler) ScheduleDailyAlarm(ctx context.Context, patientID string, triggerMillis int64, clock string) (*models.AlarmRegistration, error) {
	c, err := utils.CanonicalClock(clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlarm, err)
	}
	return s.arm(ctx, patientID, triggerMillis, c)
}

func (s *Scheduler) arm(ctx context.Context, patientID string, triggerMillis int64, clock string) (*models.AlarmRegistration, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || triggerMillis <= 0 {
		return nil, ErrInvalidAlarm
	}

	permitted, err := s.devices.CanScheduleExact(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check exact alarm capability: %w", err)
	}
	if !permitted {
		if reqErr := s.requester.RequestExactAlarmPermission(ctx, patientID); reqErr != nil {
			s.logger.Warn("Exact alarm permission request not delivered",
				zap.String("patientId", utils.SanitizeForLog(patientID)), zap.Error(reqErr))
		}
		s.logger.Info("Exact alarm not permitted, nothing armed",
			zap.String("patientId", utils.SanitizeForLog(patientID)))
		return nil, ErrExactAlarmNotPermitted
	}

	key := RegistrationKey(patientID, triggerMillis)
	fireAt := time.UnixMilli(triggerMillis)

	if err := tasks.DeleteIfPresent(s.remover, utils.QueueAlarms, key); err != nil {
		// an in-flight firing of the same key cannot be removed; the enqueue below then conflicts
		s.logger.Warn("Could not remove previous alarm task", zap.String("key", key), zap.Error(err))
	}

	task, opts, err := tasks.NewTriggerTask(models.TriggerPayload{TimeMillis: triggerMillis, PatientID: patientID, Clock: clock}, key, fireAt)
	if err != nil {
		return nil, fmt.Errorf("failed to build alarm task: %w", err)
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		if !errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, fmt.Errorf("failed to enqueue alarm: %w", err)
		}
		s.logger.Info("Alarm already armed", zap.String("key", key))
	}

	now := s.now().UTC()
	reg := models.AlarmRegistration{
		Key:           key,
		PatientID:     patientID,
		TriggerMillis: triggerMillis,
		TriggerAt:     fireAt.UTC(),
		Clock:         clock,
		Queue:         utils.QueueAlarms,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to store alarm registration: %w", err)
	}

	s.logger.Info("Alarm armed",
		zap.String("key", key),
		zap.Time("fireAt", fireAt),
		zap.Bool("past", fireAt.Before(s.now())))
	return &reg, nil
}

func (s *Scheduler) CancelAlarm(ctx context.Context, patientID string, triggerMillis int64) error {
	if strings.TrimSpace(patientID) == "" || triggerMillis <= 0 {
		return ErrInvalidAlarm
	}
	key := RegistrationKey(patientID, triggerMillis)
	if err := tasks.DeleteIfPresent(s.remover, utils.QueueAlarms, key); err != nil {
		return fmt.Errorf("failed to remove alarm task: %w", err)
	}
	if err := s.repo.DeleteByKey(ctx, key); err != nil {
		return err
	}
	s.logger.Info("Alarm cancelled", zap.String("key", key))
	return nil
}

// RetireAlarm forgets the registration of an alarm that has fired. The task
// itself is left alone since it is the one running.
func (s *Scheduler) RetireAlarm(ctx context.Context, patientID string, triggerMillis int64) error {
	key := RegistrationKey(patientID, triggerMillis)
	if err := s.repo.DeleteByKey(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to retire alarm registration: %w", err)
	}
	return nil
}

func (s *Scheduler) ListAlarms(ctx context.Context, patientID string) ([]models.AlarmRegistration, error) {
	return s.repo.GetByPatientID(ctx, patientID)
}

// ArmDaily arms the next occurrence of every distinct active time of the
// patient's daily schedule. A failing slot does not stop the others.
func (s *Scheduler) ArmDaily(ctx context.Context, patientID string) ([]models.AlarmRegistration, error) {
	items, err := s.daily.GetDailySchedule(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily schedule: %w", err)
	}

	loc := s.devices.Location(ctx, patientID)
	now := s.now()

	seen := make(map[string]struct{})
	type slot struct {
		ms    int64
		clock string
	}
	var slots []slot
	var errs error
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		clock, err := utils.CanonicalClock(it.ScheduledTime)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := seen[clock]; dup {
			continue
		}
		seen[clock] = struct{}{}

		at, err := utils.NextOccurrence(clock, now, loc)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		slots = append(slots, slot{ms: at.UnixMilli(), clock: clock})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ms < slots[j].ms })

	regs := make([]models.AlarmRegistration, 0, len(slots))
	for _, sl := range slots {
		reg, err := s.arm(ctx, patientID, sl.ms, sl.clock)
		if errors.Is(err, ErrExactAlarmNotPermitted) {
			return regs, err
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("trigger %d: %w", sl.ms, err))
			continue
		}
		regs = append(regs, *reg)
	}
	return regs, errs
}
