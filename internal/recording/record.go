package recording

import "time"

// Record statuses as persisted in the ledger.
const (
	StatusRecording = "recording"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one row of the recordings ledger.
type Record struct {
	ID        int64     `json:"id"`
	Channel   string    `json:"channel"`
	RuleID    string    `json:"rule_id"`
	Game      string    `json:"game"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Status    string    `json:"status"`
	SizeBytes int64     `json:"size_bytes"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}
