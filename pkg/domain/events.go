package domain

import "time"

// Event is an analytics occurrence handed to an event sink.
type Event struct {
	Name       string         `json:"event"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
