package types

import "time"

// VisitRecord represents one doctor visit and its derived artifacts
type VisitRecord struct {
	ID           string       `json:"id" db:"id"`
	SessionID    string       `json:"session_id" db:"session_id"`
	Name         string       `json:"name" db:"name"`
	Description  string       `json:"description" db:"description"`
	Date         string       `json:"date" db:"visit_date"`
	Doctor       string       `json:"doctor" db:"doctor"`
	ColorIndex   int          `json:"color_index" db:"color_index"`
	IsProcessing bool         `json:"is_processing" db:"is_processing"`
	SummaryLines []string     `json:"summary_lines" db:"summary_lines"`
	Prescription Prescription `json:"prescription"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Ready reports whether remote processing has produced a summary for the visit
func (v *VisitRecord) Ready() bool {
	return !v.IsProcessing && len(v.SummaryLines) > 0
}

// Prescription groups drug explanations and reminder specs derived from a
// scanned prescription
type Prescription struct {
	Explanations []Explanation  `json:"explanations"`
	Reminders    []ReminderSpec `json:"reminders"`
}

// Explanation holds the explanation lines for one drug group
type Explanation struct {
	DrugGroupName string   `json:"name"`
	Lines         []string `json:"explanation"`
}

// ReminderSpec is a medication reminder. NotificationHandle is the opaque
// identifier returned by the external notification scheduler; a persisted
// reminder always carries exactly one live handle.
type ReminderSpec struct {
	ID                 string    `json:"id" db:"id"`
	DrugName           string    `json:"drug_name" db:"drug_name"`
	Dosage             string    `json:"dosage" db:"dosage"`
	EveryXHours        int       `json:"every_x_hours" db:"every_x_hours"`
	NotificationHandle string    `json:"notification_handle" db:"notification_handle"`
	StartTime          time.Time `json:"start_time" db:"start_time"`
	ExpirationDate     time.Time `json:"expiration_date" db:"expiration_date"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// ReminderCandidate is an extracted reminder awaiting user confirmation.
// Candidates carry no identifier or handle until confirmed and scheduled.
type ReminderCandidate struct {
	DrugName    string `json:"drugName"`
	Dosage      string `json:"dosis"`
	EveryXHours int    `json:"everyXHours"`
}
