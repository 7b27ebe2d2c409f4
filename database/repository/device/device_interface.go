package deviceRepo

import (
	"context"
	"errors"

	"medimind/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("device not registered")

type DeviceRepository interface {
	Upsert(ctx context.Context, device models.PatientDevice) error
	GetByPatientID(ctx context.Context, patientID string) (*models.PatientDevice, error)
	ListPatientIDs(ctx context.Context) ([]string, error)
}

type mongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo returns a DeviceRepository backed by the patient_devices collection.
func NewMongoDeviceRepo(db *mongo.Database) DeviceRepository {
	return &mongoDeviceRepo{
		coll: db.Collection("patient_devices"),
	}
}
