// Package confirmation records the patient's answer to a reminder.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medimind/models"
	"medimind/services/deferral"
	"medimind/services/ledger"
	"medimind/utils"

	"go.uber.org/zap"
)

// SnoozeBudget is how many times one schedule slot may be deferred before
// it is logged as not taken.
const SnoozeBudget = 1

const MessageTooManySnoozes = "Too many snoozes"

var (
	ErrNothingDue     = errors.New("no medication is due at this time")
	ErrInvalidRequest = errors.New("patient id and a positive time are required")
)

type Backend interface {
	FindSchedules(ctx context.Context, q models.ScheduleQuery) ([]models.Schedule, error)
	ListMedications(ctx context.Context, ids []string) ([]models.Medication, error)
	CreateIntakeLog(ctx context.Context, log models.IntakeLog) error
}

type Locator interface {
	Location(ctx context.Context, patientID string) *time.Location
}

type Service interface {
	Load(ctx context.Context, patientID string, timeMillis int64, medIDFilter []string) (*models.PendingReminderSet, error)
	Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResult, error)
	SnoozeAll(ctx context.Context, req models.SnoozeAllRequest) (*models.SubmitResult, error)
}

type DefaultService struct {
	backend  Backend
	ledger   ledger.Ledger
	deferral deferral.Scheduler
	locator  Locator
	logger   *zap.Logger
}

func NewService(backend Backend, l ledger.Ledger, d deferral.Scheduler, locator Locator, logger *zap.Logger) *DefaultService {
	return &DefaultService{
		backend:  backend,
		ledger:   l,
		deferral: d,
		locator:  locator,
		logger:   logger,
	}
}

// Load builds the set of medications to confirm for a firing. When
// medIDFilter is non-empty only those medications are kept, which is how a
// snoozed reminder narrows the list.
func (s *DefaultService) Load(ctx context.Context, patientID string, timeMillis int64, medIDFilter []string) (*models.PendingReminderSet, error) {
	if strings.TrimSpace(patientID) == "" || timeMillis <= 0 {
		return nil, ErrInvalidRequest
	}
	loc := s.locator.Location(ctx, patientID)
	clock := utils.LocalClock(timeMillis, loc)

	schedules, err := s.backend.FindSchedules(ctx, models.ScheduleQuery{Time: clock, PatientID: patientID})
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	byMedicine := make(map[string]models.Schedule, len(schedules))
	order := make([]string, 0, len(schedules))
	for _, sc := range schedules {
		if sc.MedicineID == "" {
			continue
		}
		if _, seen := byMedicine[sc.MedicineID]; seen {
			continue
		}
		byMedicine[sc.MedicineID] = sc
		order = append(order, sc.MedicineID)
	}

	if len(medIDFilter) > 0 {
		keep := make(map[string]struct{}, len(medIDFilter))
		for _, id := range medIDFilter {
			if id = strings.TrimSpace(id); id != "" {
				keep[id] = struct{}{}
			}
		}
		filtered := order[:0]
		for _, id := range order {
			if _, ok := keep[id]; ok {
				filtered = append(filtered, id)
			}
		}
		order = filtered
	}
	if len(order) == 0 {
		return nil, ErrNothingDue
	}

	meds, err := s.backend.ListMedications(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}
	medByID := make(map[string]models.Medication, len(meds))
	for _, m := range meds {
		medByID[m.ID] = m
	}

	set := &models.PendingReminderSet{
		PatientID:   patientID,
		TimeMillis:  timeMillis,
		LocalDate:   utils.LocalDate(timeMillis, loc),
		LocalTime:   clock,
		DisplayTime: utils.FormatDisplayTime(clock),
	}
	for _, id := range order {
		m, ok := medByID[id]
		if !ok {
			continue
		}
		set.Items = append(set.Items, models.PendingItem{Medication: m, Schedule: byMedicine[id]})
	}
	if len(set.Items) == 0 {
		return nil, ErrNothingDue
	}
	return set, nil
}

// Submit applies the patient's decisions. A taken medication is logged and
// its snooze state reset. A medication left unticked is deferred while its
// budget lasts and logged as not taken once it is spent, which also keeps
// the rest of the batch from being deferred.
//
// Every intake log is sent before any snooze state changes, so a backend
// failure leaves the ledger and the deferral queue as they were and the
// same request can be resent.
func (s *DefaultService) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResult, error) {
	if strings.TrimSpace(req.PatientID) == "" || req.TimeMillis <= 0 {
		return nil, ErrInvalidRequest
	}
	loc := s.locator.Location(ctx, req.PatientID)
	loggedDate := utils.LocalDate(req.TimeMillis, loc)
	log := s.logger.With(
		zap.String("patientId", utils.SanitizeForLog(req.PatientID)),
		zap.Int64("timeMillis", req.TimeMillis))

	res := &models.SubmitResult{Snoozable: true}
	var entries []models.IntakeLog
	var pending []models.SnoozeItem

	for _, d := range req.Decisions {
		if d.ScheduleID == "" {
			log.Warn("Skipping medication without schedule", zap.String("medicationId", utils.SanitizeForLog(d.MedicationID)))
			res.Skipped = append(res.Skipped, d.MedicationID)
			continue
		}
		if d.Taken {
			entries = append(entries, models.NewIntakeLog(req.PatientID, d.MedicationID, d.ScheduleID, loggedDate, true))
			continue
		}
		count, err := s.ledger.Count(ctx, d.ScheduleID)
		if err != nil {
			return res, fmt.Errorf("failed to read snooze count: %w", err)
		}
		if count < SnoozeBudget {
			pending = append(pending, models.SnoozeItem{MedicationID: d.MedicationID, ScheduleID: d.ScheduleID})
			continue
		}
		log.Info("Snooze budget spent, logging as not taken", zap.String("scheduleId", d.ScheduleID), zap.Int("count", count))
		entries = append(entries, models.NewIntakeLog(req.PatientID, d.MedicationID, d.ScheduleID, loggedDate, false))
		res.ForceLogged = append(res.ForceLogged, d.MedicationID)
		res.Snoozable = false
	}

	for _, entry := range entries {
		if err := s.backend.CreateIntakeLog(ctx, entry); err != nil {
			return res, fmt.Errorf("failed to log intake: %w", err)
		}
		res.Logged = append(res.Logged, entry)
	}
	for _, entry := range entries {
		if err := s.forget(ctx, entry.ScheduleID, req.TimeMillis); err != nil {
			return res, err
		}
	}

	var unconfirmed []models.SnoozeItem
	for _, it := range pending {
		count, ok, err := s.ledger.TryIncrement(ctx, it.ScheduleID, SnoozeBudget)
		if err != nil {
			return res, fmt.Errorf("failed to update snooze count: %w", err)
		}
		if ok {
			log.Debug("Medication snoozed", zap.String("scheduleId", it.ScheduleID), zap.Int("count", count))
			res.Snoozed = append(res.Snoozed, it.MedicationID)
			unconfirmed = append(unconfirmed, it)
			continue
		}
		// a concurrent submit spent the budget after it was read above
		entry := models.NewIntakeLog(req.PatientID, it.MedicationID, it.ScheduleID, loggedDate, false)
		if err := s.backend.CreateIntakeLog(ctx, entry); err != nil {
			return res, fmt.Errorf("failed to log intake: %w", err)
		}
		if err := s.forget(ctx, it.ScheduleID, req.TimeMillis); err != nil {
			return res, err
		}
		res.Logged = append(res.Logged, entry)
		res.ForceLogged = append(res.ForceLogged, it.MedicationID)
		res.Snoozable = false
	}

	if !res.Snoozable {
		res.Messages = append(res.Messages, MessageTooManySnoozes)
	}
	if res.Snoozable && len(unconfirmed) > 0 {
		id, err := s.deferral.Enqueue(ctx, deferral.SnoozeRequest{
			PatientID:  req.PatientID,
			TimeMillis: req.TimeMillis,
			Items:      unconfirmed,
		})
		if err != nil {
			return res, fmt.Errorf("failed to schedule snoozed reminder: %w", err)
		}
		res.DeferralTaskID = id
	}

	log.Info("Reminder confirmed",
		zap.Int("logged", len(res.Logged)),
		zap.Int("snoozed", len(res.Snoozed)),
		zap.Bool("snoozable", res.Snoozable),
		zap.String("deferralTaskId", res.DeferralTaskID))
	return res, nil
}

// SnoozeAll treats every item as not taken.
func (s *DefaultService) SnoozeAll(ctx context.Context, req models.SnoozeAllRequest) (*models.SubmitResult, error) {
	decisions := make([]models.Decision, 0, len(req.Items))
	for _, it := range req.Items {
		decisions = append(decisions, models.Decision{MedicationID: it.MedicationID, ScheduleID: it.ScheduleID})
	}
	return s.Submit(ctx, models.SubmitRequest{
		PatientID:  req.PatientID,
		TimeMillis: req.TimeMillis,
		Decisions:  decisions,
	})
}

// forget drops the snooze count and any pending deferral of a logged slot.
func (s *DefaultService) forget(ctx context.Context, scheduleID string, timeMillis int64) error {
	if _, err := s.ledger.Clear(ctx, scheduleID); err != nil {
		return fmt.Errorf("failed to clear snooze count: %w", err)
	}
	if err := s.deferral.Cancel(ctx, deferral.Tag(scheduleID, timeMillis)); err != nil {
		return fmt.Errorf("failed to cancel snoozed reminder: %w", err)
	}
	return nil
}
