package alarmRepo

import (
	"context"
	"errors"

	"medimind/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("alarm registration not found")

type AlarmRepository interface {
	Upsert(ctx context.Context, reg models.AlarmRegistration) error
	GetByPatientID(ctx context.Context, patientID string) ([]models.AlarmRegistration, error)
	DeleteByKey(ctx context.Context, key string) error
}

type mongoAlarmRepo struct {
	coll *mongo.Collection
}

// NewMongoAlarmRepo returns an AlarmRepository backed by the alarm_registrations collection.
func NewMongoAlarmRepo(db *mongo.Database) AlarmRepository {
	return &mongoAlarmRepo{
		coll: db.Collection("alarm_registrations"),
	}
}
