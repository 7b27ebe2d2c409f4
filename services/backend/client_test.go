package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medimind/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSchedules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/schedule/find", r.URL.Path)

		var q models.ScheduleQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "09:00:00", q.Time)
		assert.Equal(t, "p-1", q.PatientID)

		_ = json.NewEncoder(w).Encode([]models.Schedule{{ScheduleID: "s-1", MedicineID: "m-1", IsActive: true}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	got, err := c.FindSchedules(context.Background(), models.ScheduleQuery{Time: "09:00:00", PatientID: "p-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ScheduleID)
}

func TestFindSchedulesNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, nil).FindSchedules(context.Background(), models.ScheduleQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "patientId is required", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).FindSchedules(context.Background(), models.ScheduleQuery{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Error(), "patientId is required")
}

func TestCreateIntakeLogSendsIdempotencyKey(t *testing.T) {
	var keys []string
	var bodies []models.IntakeLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/intakeHistory/create", r.URL.Path)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		var l models.IntakeLog
		require.NoError(t, json.NewDecoder(r.Body).Decode(&l))
		bodies = append(bodies, l)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	log := models.NewIntakeLog("p-1", "m-1", "s-1", "2025-01-02", false)
	require.NoError(t, c.CreateIntakeLog(context.Background(), log))
	require.NoError(t, c.CreateIntakeLog(context.Background(), log))

	require.Len(t, keys, 2)
	assert.Equal(t, log.ClientRequestID, keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, bodies[0].ClientRequestID, bodies[1].ClientRequestID)
	assert.False(t, bodies[0].IsTaken)
	assert.Equal(t, "2025-01-02", bodies[0].LoggedDate)
}

func TestListMedicationsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, []string{"m-1", "m-2"}, in["medicationIdList"])
		_ = json.NewEncoder(w).Encode([]models.Medication{{ID: "m-1", MedicationName: "Metformin"}})
	}))
	defer srv.Close()

	meds, err := NewClient(srv.URL, nil).ListMedications(context.Background(), []string{"m-1", "m-2"})
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "Metformin", meds[0].MedicationName)
}

func TestGetDailySchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/schedule/daily/p-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]models.DailyScheduleItem{{ScheduledTime: "08:00", IsActive: true}})
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, nil).GetDailySchedule(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "08:00", items[0].ScheduledTime)
}

func TestContextDeadlineAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL, nil).FindSchedules(ctx, models.ScheduleQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
