package types

// SessionState represents the lifecycle phase of a consultation session
type SessionState string

const (
	StateNew        SessionState = "new"
	StateOpening    SessionState = "opening"
	StateListening  SessionState = "listening"
	StateSubmitting SessionState = "submitting"
	StateProcessing SessionState = "processing"
	StateReady      SessionState = "ready"
	StateError      SessionState = "error"
)

// SessionContext tracks the single active remote session for one visit flow.
// The transcript itself is owned by the speech producer; the core only reads
// the final text at submission time.
type SessionContext struct {
	SessionID string       `json:"session_id"`
	VisitID   string       `json:"visit_id"`
	State     SessionState `json:"state"`
}

// SummaryPoll is the result of a summary readiness check. A not-ready poll is
// a success with Ready=false, never an error.
type SummaryPoll struct {
	Ready bool     `json:"isValid"`
	Lines []string `json:"result"`
}

// PrescriptionExtraction is the structured result of submitting raw
// prescription text to the backend
type PrescriptionExtraction struct {
	Explanations []Explanation       `json:"explanations"`
	Reminders    []ReminderCandidate `json:"reminders"`
}

// PendingTrigger describes one armed trigger reported by the external
// notification scheduler
type PendingTrigger struct {
	Handle       string `json:"handle"`
	NextFireTime int64  `json:"next_fire_time"`
}
