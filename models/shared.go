package models

// TriggerPayload is the body of an armed alarm task. Field names match the
// extras the device expects when it opens the confirmation screen. Clock is
// the schedule's wall-clock time when the alarm belongs to a daily slot; it
// differs from the local time of TimeMillis only inside a DST gap.
type TriggerPayload struct {
	TimeMillis int64  `json:"time_millis"`
	PatientID  string `json:"patient_id"`
	Clock      string `json:"clock,omitempty"`
}

// SnoozeItem is one unconfirmed medication carried by a deferral task.
type SnoozeItem struct {
	MedicationID string `json:"medicationId"`
	ScheduleID   string `json:"scheduleId"`
}

type SnoozePayload struct {
	TaskID     string       `json:"taskId"`
	PatientID  string       `json:"patient_id"`
	TimeMillis int64        `json:"time_millis"`
	Items      []SnoozeItem `json:"items"`
}

// MedicationIDs returns the medication ids of the payload in order.
func (p SnoozePayload) MedicationIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.MedicationID)
	}
	return ids
}
