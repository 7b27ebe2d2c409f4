// File: models/schedule.go
package models

// Schedule is one planned medication-intake slot as served by the backend.
// The reminder service only reads schedules.
type Schedule struct {
	ScheduleID   string `json:"scheduleId"`
	ScheduleTime string `json:"scheduleTime"` // HH:mm[:ss]
	IsActive     bool   `json:"isActive"`
	MedicineID   string `json:"medicineId"`
}

// ScheduleQuery asks the backend for the schedules due at a local time of day.
type ScheduleQuery struct {
	Time      string `json:"time"` // HH:mm:ss
	PatientID string `json:"patientId"`
}

// DailyScheduleItem is a row of the patient's recurring daily schedule.
type DailyScheduleItem struct {
	ScheduledTime  string `json:"scheduledTime"`
	MedicationName string `json:"medicationName"`
	Quantity       string `json:"quantity"`
	IsActive       bool   `json:"isActive"`
}
