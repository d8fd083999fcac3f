package models

import "time"

// Event kinds published to the telemetry sink.
const (
	EventCommand = "command"
	EventSession = "session"
)

// Event is a telemetry record. Confidence and provenance are informational.
type Event struct {
	Kind         string    `json:"kind"`
	Identity     string    `json:"identity,omitempty"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Command      string    `json:"command,omitempty"`
	OK           *bool     `json:"ok,omitempty"`
	Error        string    `json:"error,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	AIProcessed  bool      `json:"ai_processed,omitempty"`
	State        string    `json:"state,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
