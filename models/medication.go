package models

type Medication struct {
	ID             string `json:"id"`
	MedicationName string `json:"medicationName"`
	IntakeQuantity string `json:"intakeQuantity"`
	Frequency      int    `json:"frequency"`
	Timing         string `json:"timing"`
	Instructions   string `json:"instructions"`
	Note           string `json:"note"`
	IsActive       *bool  `json:"isActive,omitempty"`
}

type MedicationIDList struct {
	MedicationIDs []string `json:"medicationIdList"`
}
