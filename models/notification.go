package models

// DueReminder is what the trigger hands to the notifier once the backend
// confirmed something is due.
type DueReminder struct {
	PatientID  string     `json:"patientId"`
	TimeMillis int64      `json:"timeMillis"`
	LocalTime  string     `json:"localTime"`
	Schedules  []Schedule `json:"schedules"`
}

// SnoozedReminder re-raises the confirmation surface for a subset of
// medications after a deferral.
type SnoozedReminder struct {
	PatientID     string   `json:"patientId"`
	TimeMillis    int64    `json:"timeMillis"`
	MedicationIDs []string `json:"medicationIds"`
}
