// File: models/alarm.go
package models

import "time"

// AlarmRegistration ties a (patient, trigger time) pair to the queued task
// that will fire it. Key is the stable registration key and doubles as the
// task id, so re-arming the same slot replaces the previous registration.
type AlarmRegistration struct {
	Key           string    `bson:"key" json:"key"`
	PatientID     string    `bson:"patientId" json:"patientId"`
	TriggerMillis int64     `bson:"triggerMillis" json:"triggerMillis"`
	TriggerAt     time.Time `bson:"triggerAt" json:"triggerAt"`
	Clock         string    `bson:"clock,omitempty" json:"clock,omitempty"`
	Queue         string    `bson:"queue" json:"queue"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}
