// File: medimind/models/device.go
package models

import "time"

// PatientDevice is what the phone reports about itself: where to push, whether
// exact alarms are allowed and which zone its wall clock runs in.
type PatientDevice struct {
	PatientID           string    `bson:"patientId" json:"patientId"`
	FCMToken            string    `bson:"fcmToken" json:"fcmToken"`
	ExactAlarmPermitted bool      `bson:"exactAlarmPermitted" json:"exactAlarmPermitted"`
	Timezone            string    `bson:"timezone" json:"timezone"`
	Platform            string    `bson:"platform" json:"platform"`
	AppVersion          string    `bson:"appVersion,omitempty" json:"appVersion,omitempty"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
}

type DeviceRegistration struct {
	FCMToken            string `json:"fcmToken" binding:"required"`
	ExactAlarmPermitted bool   `json:"exactAlarmPermitted"`
	Timezone            string `json:"timezone"`
	Platform            string `json:"platform"`
	AppVersion          string `json:"appVersion"`
}
