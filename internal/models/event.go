package models

import "time"

// SweepEvent is a single entry in the run log.
type SweepEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // RUN_STARTED | POINT_FAILED | RUN_COMPLETED | RUN_ABORTED | CONFIG_FAILED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Operator is a user allowed to drive the station.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
