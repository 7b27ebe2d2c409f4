package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"medimind/models"
	"medimind/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

const (
	ChannelDue     = "medication_due"
	ChannelSnoozed = "medication_snoozed"

	ActionOpenReminder       = "OPEN_REMINDER"
	ActionRequestExactAlarms = "REQUEST_SCHEDULE_EXACT_ALARM"
)

var ErrNoToken = errors.New("patient has no registered push token")

// NotificationService raises the reminder surfaces on the patient's device.
type NotificationService interface {
	NotifyDue(ctx context.Context, r models.DueReminder) error
	NotifySnoozed(ctx context.Context, r models.SnoozedReminder) error
	RequestExactAlarmPermission(ctx context.Context, patientID string) error
}

// Sender is the part of *messaging.Client the service needs.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DeviceLookup resolves a patient to the device that receives pushes.
type DeviceLookup interface {
	Get(ctx context.Context, patientID string) (*models.PatientDevice, error)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	sender  Sender
	devices DeviceLookup
	logger  *zap.Logger
}

func NewDefaultNotificationService(sender Sender, devices DeviceLookup, logger *zap.Logger) (*DefaultNotificationService, error) {
	if sender == nil || devices == nil {
		return nil, fmt.Errorf("notification service initialization error: sender or device lookup is nil")
	}
	return &DefaultNotificationService{
		sender:  sender,
		devices: devices,
		logger:  logger,
	}, nil
}

// NotifyDue posts the due reminder. The tag is derived from the firing time
// so a second post for the same firing replaces the first.
func (s *DefaultNotificationService) NotifyDue(ctx context.Context, r models.DueReminder) error {
	millis := strconv.FormatInt(r.TimeMillis, 10)
	data := map[string]string{
		"action":      ActionOpenReminder,
		"time_millis": millis,
		"patient_id":  r.PatientID,
		"local_time":  r.LocalTime,
		"count":       strconv.Itoa(len(r.Schedules)),
	}
	return s.send(ctx, r.PatientID, "NotifyDue", highPriority(
		ChannelDue,
		"reminder_"+millis,
		"Medication Reminder",
		"It's time to take your medicine!",
		data,
	))
}

// NotifySnoozed re-raises the confirmation for the medications still open
// after a deferral.
func (s *DefaultNotificationService) NotifySnoozed(ctx context.Context, r models.SnoozedReminder) error {
	millis := strconv.FormatInt(r.TimeMillis, 10)
	data := map[string]string{
		"action":      ActionOpenReminder,
		"time_millis": millis,
		"patient_id":  r.PatientID,
		"med_id_list": strings.Join(r.MedicationIDs, ","),
	}
	return s.send(ctx, r.PatientID, "NotifySnoozed", highPriority(
		ChannelSnoozed,
		"snoozed_"+millis,
		"Snoozed Reminder",
		"It's time to take your medicine (snoozed)!",
		data,
	))
}

// RequestExactAlarmPermission asks the app to open the exact-alarm settings
// screen. It is a data-only message.
func (s *DefaultNotificationService) RequestExactAlarmPermission(ctx context.Context, patientID string) error {
	msg := &messaging.Message{
		Data: map[string]string{
			"action":     ActionRequestExactAlarms,
			"patient_id": patientID,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	return s.send(ctx, patientID, "RequestExactAlarmPermission", msg)
}

func (s *DefaultNotificationService) send(ctx context.Context, patientID, op string, msg *messaging.Message) error {
	d, err := s.devices.Get(ctx, patientID)
	if err != nil {
		return fmt.Errorf("%s: could not find device for patient %s: %w", op, patientID, err)
	}
	if d.FCMToken == "" {
		return fmt.Errorf("%s: patient %s: %w", op, patientID, ErrNoToken)
	}
	msg.Token = d.FCMToken

	response, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%s: failed to send FCM message: %w", op, err)
	}

	s.logger.Debug("Push sent",
		zap.String("op", op),
		zap.String("patientId", utils.SanitizeForLog(patientID)),
		zap.String("messageId", response))
	return nil
}

func highPriority(channelID, tag, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             channelID,
				Tag:                   tag,
				Sound:                 "default",
				DefaultSound:          true,
				DefaultVibrateTimings: true,
				Priority:              messaging.PriorityHigh,
				ClickAction:           ActionOpenReminder,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					ThreadID: channelID,
				},
			},
		},
	}
}
