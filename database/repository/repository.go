package repository

import (
	"context"

	alarmRepo "medimind/database/repository/alarm"
	deviceRepo "medimind/database/repository/device"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the AlarmRepository interface and constructor.
type AlarmRepository = alarmRepo.AlarmRepository

var NewMongoAlarmRepo = alarmRepo.NewMongoAlarmRepo

// Re-export the DeviceRepository interface and constructor.
type DeviceRepository = deviceRepo.DeviceRepository

var NewMongoDeviceRepo = deviceRepo.NewMongoDeviceRepo

// EnsureIndexes creates the indexes of every collection the service owns.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := alarmRepo.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	return deviceRepo.EnsureIndexes(ctx, db)
}
