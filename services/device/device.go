// Package device keeps what the patient's phone reports about itself.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	deviceRepo "medimind/database/repository/device"
	"medimind/models"
	"medimind/utils"

	"go.uber.org/zap"
)

var ErrUnknownDevice = deviceRepo.ErrNotFound

type Service interface {
	Register(ctx context.Context, patientID string, reg models.DeviceRegistration) (*models.PatientDevice, error)
	Get(ctx context.Context, patientID string) (*models.PatientDevice, error)
	CanScheduleExact(ctx context.Context, patientID string) (bool, error)
	Location(ctx context.Context, patientID string) *time.Location
	PatientIDs(ctx context.Context) ([]string, error)
}

// GrantListener is told when a patient's exact-alarm permission turns on.
type GrantListener interface {
	ArmDaily(ctx context.Context, patientID string) ([]models.AlarmRegistration, error)
}

type DefaultService struct {
	repo       deviceRepo.DeviceRepository
	defaultLoc *time.Location
	logger     *zap.Logger
	now        func() time.Time
	onGrant    GrantListener
}

func NewService(repo deviceRepo.DeviceRepository, defaultLoc *time.Location, logger *zap.Logger) *DefaultService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &DefaultService{
		repo:       repo,
		defaultLoc: defaultLoc,
		logger:     logger,
		now:        time.Now,
	}
}

// OnExactAlarmGranted sets the listener that re-arms a patient's alarms once
// the permission that blocked them is granted.
func (s *DefaultService) OnExactAlarmGranted(l GrantListener) {
	s.onGrant = l
}

// Register stores or replaces the device record of a patient. An unknown
// zone name is rejected rather than silently replaced by the default.
func (s *DefaultService) Register(ctx context.Context, patientID string, reg models.DeviceRegistration) (*models.PatientDevice, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, errors.New("patient id is required")
	}
	if strings.TrimSpace(reg.FCMToken) == "" {
		return nil, errors.New("fcm token is required")
	}
	if reg.Timezone != "" {
		if _, err := time.LoadLocation(reg.Timezone); err != nil {
			return nil, fmt.Errorf("unknown timezone %q", reg.Timezone)
		}
	}

	wasPermitted := false
	prev, err := s.repo.GetByPatientID(ctx, patientID)
	switch {
	case err == nil:
		wasPermitted = prev.ExactAlarmPermitted
	case !errors.Is(err, deviceRepo.ErrNotFound):
		s.logger.Warn("Previous device lookup failed",
			zap.String("patientId", utils.SanitizeForLog(patientID)), zap.Error(err))
	}

	d := models.PatientDevice{
		PatientID:           patientID,
		FCMToken:            reg.FCMToken,
		ExactAlarmPermitted: reg.ExactAlarmPermitted,
		Timezone:            reg.Timezone,
		Platform:            reg.Platform,
		AppVersion:          reg.AppVersion,
		UpdatedAt:           s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store device: %w", err)
	}

	s.logger.Info("Device registered",
		zap.String("patientId", utils.SanitizeForLog(patientID)),
		zap.Bool("exactAlarmPermitted", d.ExactAlarmPermitted),
		zap.String("timezone", d.Timezone))

	if d.ExactAlarmPermitted && !wasPermitted && s.onGrant != nil {
		regs, err := s.onGrant.ArmDaily(ctx, patientID)
		if err != nil {
			s.logger.Warn("Re-arming after permission grant incomplete",
				zap.String("patientId", utils.SanitizeForLog(patientID)), zap.Error(err))
		}
		s.logger.Info("Alarms re-armed after permission grant",
			zap.String("patientId", utils.SanitizeForLog(patientID)), zap.Int("armed", len(regs)))
	}
	return &d, nil
}

func (s *DefaultService) Get(ctx context.Context, patientID string) (*models.PatientDevice, error) {
	return s.repo.GetByPatientID(ctx, patientID)
}

// CanScheduleExact reports the exact-alarm capability. A patient without a
// registered device has none.
func (s *DefaultService) CanScheduleExact(ctx context.Context, patientID string) (bool, error) {
	d, err := s.repo.GetByPatientID(ctx, patientID)
	if errors.Is(err, deviceRepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.ExactAlarmPermitted, nil
}

// Location returns the patient's zone, or the service default when the
// device is unknown or reported nothing usable.
func (s *DefaultService) Location(ctx context.Context, patientID string) *time.Location {
	d, err := s.repo.GetByPatientID(ctx, patientID)
	if err != nil {
		if !errors.Is(err, deviceRepo.ErrNotFound) {
			s.logger.Warn("Device lookup failed, using default timezone",
				zap.String("patientId", utils.SanitizeForLog(patientID)), zap.Error(err))
		}
		return s.defaultLoc
	}
	return utils.LoadLocation(d.Timezone, s.defaultLoc)
}

func (s *DefaultService) PatientIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListPatientIDs(ctx)
}
