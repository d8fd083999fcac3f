package memory

import (
	"context"
	"time"
)

// Roles stored with each message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in an identity's utterance history
type Message struct {
	Role      string    `json:"role"`    // "user" or "assistant"
	Content   string    `json:"content"` // utterance, or the translation summary
	Timestamp time.Time `json:"timestamp"`
}

// History is everything stored for one agent identity
type History struct {
	Identity string    `json:"identity"`
	Messages []Message `json:"messages"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata contains history bookkeeping
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store persists utterance history.
// Implementations keep at most their configured limit of messages per identity.
type Store interface {
	// Load returns the history for identity, empty if none exists
	Load(ctx context.Context, identity string) (*History, error)

	// Append adds messages to the end of identity's history
	Append(ctx context.Context, identity string, msgs ...Message) error

	// Clear removes identity's history
	Clear(ctx context.Context, identity string) error
}

func newHistory(identity string, now time.Time) *History {
	return &History{
		Identity: identity,
		Messages: []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// appendTrimmed appends msgs and drops the oldest entries beyond limit.
func (h *History) appendTrimmed(limit int, now time.Time, msgs ...Message) {
	h.Messages = append(h.Messages, msgs...)
	if limit > 0 && len(h.Messages) > limit {
		h.Messages = append([]Message(nil), h.Messages[len(h.Messages)-limit:]...)
	}
	h.Metadata.LastActivity = now
	h.Metadata.MessageCount += len(msgs)
}
