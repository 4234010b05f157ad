package domain

import (
	"encoding/json"
	"time"
)

// PendingSubmission is a lead payload waiting for a background retry.
type PendingSubmission struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	QueuedAt  time.Time       `json:"queued_at"`
	LastError string          `json:"last_error,omitempty"`
}
