// Package trigger runs one alarm firing from backend query to re-arm.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medimind/models"
	"medimind/services/alarm"
	"medimind/services/tasks"
	"medimind/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	DefaultBudget       = 30 * time.Second
	DefaultQueryTimeout = 8 * time.Second
	rearmTimeout        = 5 * time.Second
)

type Status string

const (
	StatusInvalid      Status = "invalid"
	StatusDuplicate    Status = "duplicate"
	StatusQueryTimeout Status = "query_timeout"
	StatusQueryFailed  Status = "query_failed"
	StatusNothingDue   Status = "nothing_due"
	StatusNotifyFailed Status = "notify_failed"
	StatusAborted      Status = "aborted"
	StatusNotified     Status = "notified"
)

var ErrInvalidEvent = errors.New("trigger event needs a patient id and a positive time")

// TriggerEvent is one alarm firing as delivered by the queue.
type TriggerEvent = models.TriggerPayload

// Outcome reports what a firing did. Rearmed is false only when validation
// failed, the firing was a duplicate, or the re-arm itself errored.
type Outcome struct {
	Status      Status    `json:"status"`
	Schedules   int       `json:"schedules"`
	Rearmed     bool      `json:"rearmed"`
	NextTrigger time.Time `json:"nextTrigger,omitzero"`
	Err         error     `json:"-"`
	RearmErr    error     `json:"-"`
}

type ScheduleFinder interface {
	FindSchedules(ctx context.Context, q models.ScheduleQuery) ([]models.Schedule, error)
}

type DueNotifier interface {
	NotifyDue(ctx context.Context, r models.DueReminder) error
}

// Rearmer arms the next firing of a daily slot and forgets the one that fired.
type Rearmer interface {
	ScheduleDailyAlarm(ctx context.Context, patientID string, triggerMillis int64, clock string) (*models.AlarmRegistration, error)
	RetireAlarm(ctx context.Context, patientID string, triggerMillis int64) error
}

type Locator interface {
	Location(ctx context.Context, patientID string) *time.Location
}

type Handler struct {
	finder       ScheduleFinder
	notifier     DueNotifier
	rearmer      Rearmer
	locator      Locator
	leases       LeaseStore
	budget       time.Duration
	queryTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewHandler(
	finder ScheduleFinder,
	notifier DueNotifier,
	rearmer Rearmer,
	locator Locator,
	leases LeaseStore,
	budget time.Duration,
	logger *zap.Logger,
) *Handler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Handler{
		finder:       finder,
		notifier:     notifier,
		rearmer:      rearmer,
		locator:      locator,
		leases:       leases,
		budget:       budget,
		queryTimeout: DefaultQueryTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle runs a single firing. Once the event is valid and the lease is
// held, the next day's alarm is armed whatever happened before.
func (h *Handler) Handle(ctx context.Context, ev TriggerEvent) Outcome {
	if ev.PatientID == "" || ev.TimeMillis <= 0 {
		h.logger.Warn("Dropping invalid trigger event",
			zap.String("patientId", utils.SanitizeForLog(ev.PatientID)),
			zap.Int64("timeMillis", ev.TimeMillis))
		return Outcome{Status: StatusInvalid, Err: ErrInvalidEvent}
	}

	key := alarm.RegistrationKey(ev.PatientID, ev.TimeMillis)
	log := h.logger.With(zap.String("key", utils.SanitizeForLog(key)))

	ctx, cancel := context.WithTimeout(ctx, h.budget)
	defer cancel()

	release, held, err := h.leases.Acquire(ctx, key, h.budget)
	if err != nil {
		log.Warn("Lease store unavailable, running without lease", zap.Error(err))
	} else if !held {
		log.Info("Firing already in progress elsewhere")
		return Outcome{Status: StatusDuplicate}
	}
	defer release()

	loc := h.locator.Location(ctx, ev.PatientID)
	firedAt := utils.FromMillis(ev.TimeMillis, loc)
	clock := firedAt.Format(utils.ClockLayout)
	if ev.Clock != "" {
		if c, err := utils.CanonicalClock(ev.Clock); err == nil {
			clock = c
		} else {
			log.Warn("Ignoring unparseable slot clock", zap.String("clock", utils.SanitizeForLog(ev.Clock)))
		}
	}

	out := Outcome{}
	out.Status, out.Schedules, out.Err = h.deliver(ctx, ev, clock)

	rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), rearmTimeout)
	defer rcancel()
	next, err := h.nextTrigger(firedAt, clock, loc)
	if err == nil {
		out.NextTrigger = next
		_, err = h.rearmer.ScheduleDailyAlarm(rctx, ev.PatientID, next.UnixMilli(), clock)
	}
	if err != nil {
		out.RearmErr = err
		log.Error("Failed to re-arm alarm", zap.Time("next", next), zap.Error(err))
	} else {
		out.Rearmed = true
	}
	if err := h.rearmer.RetireAlarm(rctx, ev.PatientID, ev.TimeMillis); err != nil {
		log.Warn("Failed to retire fired alarm", zap.Error(err))
	}

	log.Info("Trigger handled",
		zap.String("status", string(out.Status)),
		zap.Int("schedules", out.Schedules),
		zap.Bool("rearmed", out.Rearmed),
		zap.Time("next", next),
		zap.NamedError("cause", out.Err))
	return out
}

// nextTrigger is clock on the day after the firing. A firing that ran so
// late that this has passed as well moves on to the next future occurrence.
func (h *Handler) nextTrigger(firedAt time.Time, clock string, loc *time.Location) (time.Time, error) {
	next, err := utils.NextDayAt(firedAt, clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	now := h.now()
	if next.After(now) {
		return next, nil
	}
	return utils.NextOccurrence(clock, now, loc)
}

func (h *Handler) deliver(ctx context.Context, ev TriggerEvent, clock string) (status Status, n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, err = StatusAborted, fmt.Errorf("panic while delivering reminder: %v", r)
		}
	}()

	qctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	schedules, err := h.finder.FindSchedules(qctx, models.ScheduleQuery{Time: clock, PatientID: ev.PatientID})
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return StatusQueryTimeout, 0, err
		}
		return StatusQueryFailed, 0, err
	}
	if len(schedules) == 0 {
		return StatusNothingDue, 0, nil
	}

	err = h.notifier.NotifyDue(ctx, models.DueReminder{
		PatientID:  ev.PatientID,
		TimeMillis: ev.TimeMillis,
		LocalTime:  clock,
		Schedules:  schedules,
	})
	if err != nil {
		return StatusNotifyFailed, len(schedules), err
	}
	return StatusNotified, len(schedules), nil
}

// ProcessTask adapts Handle to asynq. An undecodable or invalid payload is
// never retried; other outcomes are final for the cycle as well.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ev, err := tasks.DecodeTrigger(task)
	if err != nil {
		h.logger.Warn("Undecodable trigger payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	out := h.Handle(ctx, ev)
	if out.Status == StatusInvalid {
		return fmt.Errorf("%v: %w", out.Err, asynq.SkipRetry)
	}
	return nil
}
