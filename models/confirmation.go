// File: medimind/models/confirmation.go
package models

// PendingItem pairs a due medication with the schedule slot it belongs to.
type PendingItem struct {
	Medication Medication `json:"medication"`
	Schedule   Schedule   `json:"schedule"`
}

// PendingReminderSet is built per alarm firing and lives only until the
// patient answers or dismisses it.
type PendingReminderSet struct {
	PatientID   string        `json:"patientId"`
	TimeMillis  int64         `json:"timeMillis"`
	LocalDate   string        `json:"localDate"`
	LocalTime   string        `json:"localTime"`
	DisplayTime string        `json:"displayTime"`
	Items       []PendingItem `json:"items"`
}

type Decision struct {
	MedicationID string `json:"medicationId" binding:"required"`
	ScheduleID   string `json:"scheduleId"`
	Taken        bool   `json:"taken"`
}

type SubmitRequest struct {
	PatientID  string     `json:"patientId" binding:"required"`
	TimeMillis int64      `json:"timeMillis" binding:"required"`
	Decisions  []Decision `json:"decisions" binding:"dive"`
}

type SubmitResult struct {
	Logged         []IntakeLog `json:"logged"`
	Snoozed        []string    `json:"snoozed"`
	ForceLogged    []string    `json:"forceLogged"`
	Skipped        []string    `json:"skipped,omitempty"`
	Snoozable      bool        `json:"snoozable"`
	DeferralTaskID string      `json:"deferralTaskId,omitempty"`
	Messages       []string    `json:"messages,omitempty"`
}

// SnoozeAllRequest defers every listed medication without asking per item.
type SnoozeAllRequest struct {
	PatientID  string       `json:"patientId" binding:"required"`
	TimeMillis int64        `json:"timeMillis" binding:"required"`
	Items      []SnoozeItem `json:"items"`
}
