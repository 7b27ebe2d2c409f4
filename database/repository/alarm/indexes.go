// FILE: database/repository/alarm/indexes.go
package alarmRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const staleRegistrationTTL = int32(7 * 24 * 60 * 60)

// EnsureIndexes creates the indexes on the alarm_registrations collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		// One registration per (patient, trigger millis).
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "triggerMillis", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("patient_trigger_idx"),
		},
		// Fired registrations are retired by the trigger; this catches the ones
		// whose firing never ran.
		{
			Keys:    bson.D{{Key: "triggerAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(staleRegistrationTTL).SetName("trigger_at_ttl"),
		},
	}

	if _, err := db.Collection("alarm_registrations").Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create alarm indexes: %w", err)
	}
	return nil
}
