package models

import "github.com/google/uuid"

// IntakeLog asserts whether a patient took a medication for a schedule slot.
// ClientRequestID is generated once per submission attempt; resending the same
// value lets the backend de-duplicate it.
type IntakeLog struct {
	MedicationID    string `json:"medicationId"`
	LoggedDate      string `json:"loggedDate"` // ISO date, patient local
	IsTaken         bool   `json:"isTaken"`
	PatientID       string `json:"patientId"`
	ScheduleID      string `json:"scheduleId"`
	ClientRequestID string `json:"clientRequestId"`
}

// NewIntakeLog builds a log with a fresh client request id.
func NewIntakeLog(patientID, medicationID, scheduleID, loggedDate string, taken bool) IntakeLog {
	return IntakeLog{
		MedicationID:    medicationID,
		LoggedDate:      loggedDate,
		IsTaken:         taken,
		PatientID:       patientID,
		ScheduleID:      scheduleID,
		ClientRequestID: uuid.New().String(),
	}
}
