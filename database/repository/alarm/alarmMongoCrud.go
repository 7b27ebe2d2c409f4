package alarmRepo

import (
	"context"
	"time"

	"medimind/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Upsert writes the registration keyed by reg.Key, keeping the original createdAt.
func (r *mongoAlarmRepo) Upsert(ctx context.Context, reg models.AlarmRegistration) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"patientId":     reg.PatientID,
			"triggerMillis": reg.TriggerMillis,
			"triggerAt":     reg.TriggerAt,
			"clock":         reg.Clock,
			"queue":         reg.Queue,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"key":       reg.Key,
			"createdAt": now,
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"key": reg.Key}, update, options.Update().SetUpsert(true))
	return err
}

// GetByPatientID lists a patient's registrations by trigger time.
func (r *mongoAlarmRepo) GetByPatientID(ctx context.Context, patientID string) ([]models.AlarmRegistration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "triggerMillis", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"patientId": patientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var regs []models.AlarmRegistration
	if err := cursor.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *mongoAlarmRepo) DeleteByKey(ctx context.Context, key string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
