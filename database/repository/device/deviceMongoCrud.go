package deviceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medimind/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoDeviceRepo) Upsert(ctx context.Context, device models.PatientDevice) error {
	device.UpdatedAt = time.Now()
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"patientId": device.PatientID},
		device,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *mongoDeviceRepo) GetByPatientID(ctx context.Context, patientID string) (*models.PatientDevice, error) {
	var device models.PatientDevice
	err := r.coll.FindOne(ctx, bson.M{"patientId": patientID}).Decode(&device)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// ListPatientIDs returns every patient with a registered device.
func (r *mongoDeviceRepo) ListPatientIDs(ctx context.Context) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "patientId", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected patientId type %T", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
