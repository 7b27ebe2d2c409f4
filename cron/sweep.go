package cron

import (
	"context"
	"errors"
	"time"

	"medimind/models"
	"medimind/services/alarm"
	"medimind/utils"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type PatientLister interface {
	PatientIDs(ctx context.Context) ([]string, error)
}

type DailyArmer interface {
	ArmDaily(ctx context.Context, patientID string) ([]models.AlarmRegistration, error)
}

// AlarmSweep re-arms every known patient's daily alarms on a schedule, so a
// chain broken by a failed re-arm heals within a day.
type AlarmSweep struct {
	cron     *robfig.Cron
	patients PatientLister
	armer    DailyArmer
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAlarmSweep(spec string, patients PatientLister, armer DailyArmer, logger *zap.Logger) (*AlarmSweep, error) {
	s := &AlarmSweep{
		cron:     robfig.New(),
		patients: patients,
		armer:    armer,
		timeout:  10 * time.Minute,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AlarmSweep) Start() { s.cron.Start() }

// Stop waits for a running sweep to finish.
func (s *AlarmSweep) Stop() { <-s.cron.Stop().Done() }

// Run arms every patient once and returns how many were armed without error.
func (s *AlarmSweep) Run(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ids, err := s.patients.PatientIDs(ctx)
	if err != nil {
		s.logger.Error("Alarm sweep could not list patients", zap.Error(err))
		return 0
	}

	ok := 0
	for _, id := range ids {
		regs, err := s.armer.ArmDaily(ctx, id)
		switch {
		case errors.Is(err, alarm.ErrExactAlarmNotPermitted):
			s.logger.Info("Alarm sweep skipped patient without exact alarms", zap.String("patientId", utils.SanitizeForLog(id)))
		case err != nil:
			s.logger.Warn("Alarm sweep failed for patient", zap.String("patientId", utils.SanitizeForLog(id)), zap.Int("armed", len(regs)), zap.Error(err))
		default:
			ok++
		}
	}
	s.logger.Info("Alarm sweep finished", zap.Int("patients", len(ids)), zap.Int("ok", ok))
	return ok
}
