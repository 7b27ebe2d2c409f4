package cron

import (
	"context"
	"errors"
	"testing"

	"medimind/models"
	"medimind/services/alarm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticPatients []string

func (s staticPatients) PatientIDs(context.Context) ([]string, error) { return s, nil }

type scriptedArmer struct {
	errs  map[string]error
	calls []string
}

func (a *scriptedArmer) ArmDaily(_ context.Context, id string) ([]models.AlarmRegistration, error) {
	a.calls = append(a.calls, id)
	return nil, a.errs[id]
}

func TestAlarmSweepRun(t *testing.T) {
	armer := &scriptedArmer{errs: map[string]error{
		"p-2": alarm.ErrExactAlarmNotPermitted,
		"p-3": errors.New("backend down"),
	}}
	s, err := NewAlarmSweep("0 2 * * *", staticPatients{"p-1", "p-2", "p-3"}, armer, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 1, s.Run(context.Background()))
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, armer.calls)
}

func TestAlarmSweepRejectsBadSpec(t *testing.T) {
	_, err := NewAlarmSweep("every tuesday", staticPatients{}, &scriptedArmer{}, zap.NewNop())
	assert.Error(t, err)
}
