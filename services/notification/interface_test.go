package notification

import (
	"context"
	"errors"
	"testing"

	"medimind/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "projects/x/messages/1", nil
}

type fakeDevices map[string]models.PatientDevice

func (f fakeDevices) Get(_ context.Context, id string) (*models.PatientDevice, error) {
	d, ok := f[id]
	if !ok {
		return nil, errors.New("not registered")
	}
	return &d, nil
}

func newService(t *testing.T, sender *fakeSender) *DefaultNotificationService {
	t.Helper()
	svc, err := NewDefaultNotificationService(sender, fakeDevices{
		"p-1": {PatientID: "p-1", FCMToken: "tok-1"},
		"p-2": {PatientID: "p-2"},
	}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNotifyDue(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, sender)

	err := svc.NotifyDue(context.Background(), models.DueReminder{
		PatientID:  "p-1",
		TimeMillis: 1700000000000,
		LocalTime:  "09:00:00",
		Schedules:  []models.Schedule{{ScheduleID: "s-1"}},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, "tok-1", m.Token)
	assert.Equal(t, "high", m.Android.Priority)
	assert.Equal(t, ChannelDue, m.Android.Notification.ChannelID)
	assert.Equal(t, "reminder_1700000000000", m.Android.Notification.Tag)
	assert.True(t, m.Android.Notification.DefaultVibrateTimings)
	assert.Equal(t, "1700000000000", m.Data["time_millis"])
	assert.Equal(t, "p-1", m.Data["patient_id"])
}

func TestNotifySnoozedCarriesMedicationList(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, sender)

	err := svc.NotifySnoozed(context.Background(), models.SnoozedReminder{
		PatientID:     "p-1",
		TimeMillis:    5,
		MedicationIDs: []string{"m-1", "m-2"},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, ChannelSnoozed, sender.sent[0].Android.Notification.ChannelID)
	assert.Equal(t, "m-1,m-2", sender.sent[0].Data["med_id_list"])
}

func TestRequestExactAlarmPermission(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(t, sender)

	require.NoError(t, svc.RequestExactAlarmPermission(context.Background(), "p-1"))
	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].Notification)
	assert.Equal(t, ActionRequestExactAlarms, sender.sent[0].Data["action"])
}

func TestSendErrors(t *testing.T) {
	svc := newService(t, &fakeSender{})
	ctx := context.Background()

	err := svc.NotifyDue(ctx, models.DueReminder{PatientID: "p-2"})
	assert.ErrorIs(t, err, ErrNoToken)

	err = svc.NotifyDue(ctx, models.DueReminder{PatientID: "unknown"})
	assert.Error(t, err)

	failing := newService(t, &fakeSender{err: errors.New("unavailable")})
	err = failing.NotifyDue(ctx, models.DueReminder{PatientID: "p-1"})
	assert.ErrorContains(t, err, "unavailable")
}

func TestConstructorRejectsNil(t *testing.T) {
	_, err := NewDefaultNotificationService(nil, fakeDevices{}, zap.NewNop())
	assert.Error(t, err)
}
