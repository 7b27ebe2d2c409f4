package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	deviceRepo "medimind/database/repository/device"
	"medimind/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu      sync.Mutex
	devices map[string]models.PatientDevice
	getErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{devices: map[string]models.PatientDevice{}}
}

func (r *memRepo) Upsert(_ context.Context, d models.PatientDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.PatientID] = d
	return nil
}

func (r *memRepo) GetByPatientID(_ context.Context, id string) (*models.PatientDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	d, ok := r.devices[id]
	if !ok {
		return nil, deviceRepo.ErrNotFound
	}
	return &d, nil
}

func (r *memRepo) ListPatientIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestRegisterAndCapability(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, time.UTC, zap.NewNop())
	ctx := context.Background()

	ok, err := svc.CanScheduleExact(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, ok, "unknown device has no exact alarm capability")

	d, err := svc.Register(ctx, "p-1", models.DeviceRegistration{
		FCMToken:            "tok",
		ExactAlarmPermitted: true,
		Timezone:            "Asia/Colombo",
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", d.PatientID)

	ok, err = svc.CanScheduleExact(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Asia/Colombo", svc.Location(ctx, "p-1").String())

	ids, err := svc.PatientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, ids)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemRepo(), time.UTC, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "", models.DeviceRegistration{FCMToken: "tok"})
	assert.Error(t, err)
	_, err = svc.Register(ctx, "p-1", models.DeviceRegistration{})
	assert.Error(t, err)
	_, err = svc.Register(ctx, "p-1", models.DeviceRegistration{FCMToken: "tok", Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestLocationFallsBack(t *testing.T) {
	repo := newMemRepo()
	def, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	svc := NewService(repo, def, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, def, svc.Location(ctx, "missing"))

	_, err = svc.Register(ctx, "p-2", models.DeviceRegistration{FCMToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, def, svc.Location(ctx, "p-2"))

	repo.getErr = errors.New("mongo down")
	assert.Equal(t, def, svc.Location(ctx, "p-2"))
	_, err = svc.CanScheduleExact(ctx, "p-2")
	assert.Error(t, err)
}

type recordingArmer struct{ armed []string }

func (a *recordingArmer) ArmDaily(_ context.Context, id string) ([]models.AlarmRegistration, error) {
	a.armed = append(a.armed, id)
	return []models.AlarmRegistration{{PatientID: id}}, nil
}

func TestRegisterGrantRearms(t *testing.T) {
	svc := NewService(newMemRepo(), time.UTC, zap.NewNop())
	armer := &recordingArmer{}
	svc.OnExactAlarmGranted(armer)
	ctx := context.Background()

	_, err := svc.Register(ctx, "p-1", models.DeviceRegistration{FCMToken: "tok"})
	require.NoError(t, err)
	assert.Empty(t, armer.armed, "denied permission arms nothing")

	_, err = svc.Register(ctx, "p-1", models.DeviceRegistration{FCMToken: "tok", ExactAlarmPermitted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, armer.armed)

	_, err = svc.Register(ctx, "p-1", models.DeviceRegistration{FCMToken: "tok2", ExactAlarmPermitted: true})
	require.NoError(t, err)
	assert.Len(t, armer.armed, 1, "token refresh with unchanged permission does not re-arm")
}
