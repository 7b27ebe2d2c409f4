package tasks

import (
	"testing"
	"time"

	"medimind/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerTaskRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	task, opts, err := NewTriggerTask(models.TriggerPayload{TimeMillis: at.UnixMilli(), PatientID: "p-1"}, "alarm:p-1:1", at)
	require.NoError(t, err)
	assert.Equal(t, TypeReminderTrigger, task.Type())
	assert.Len(t, opts, 4)
	assert.JSONEq(t, `{"time_millis":1740819600000,"patient_id":"p-1"}`, string(task.Payload()))

	p, err := DecodeTrigger(task)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PatientID)
	assert.Equal(t, at.UnixMilli(), p.TimeMillis)
}

func TestSnoozeTaskCarriesItems(t *testing.T) {
	payload := models.SnoozePayload{
		TaskID:     "snooze-1",
		PatientID:  "p-1",
		TimeMillis: 10,
		Items:      []models.SnoozeItem{{MedicationID: "m-1", ScheduleID: "s-1"}},
	}
	task, _, err := NewSnoozeTask(payload, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TypeReminderSnooze, task.Type())

	p, err := DecodeSnooze(task)
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1"}, p.MedicationIDs())
}
