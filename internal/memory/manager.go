package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

// Manager keeps recent utterances per identity in a LangChainGo buffer backed by a Store.
type Manager struct {
	store  Store
	limit  int
	logger *zap.Logger

	mu      sync.Mutex
	buffers map[string]*memory.ConversationBuffer // in-memory cache
}

// NewManager creates a history manager. limit bounds the messages kept per identity.
func NewManager(store Store, limit int, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		limit:   limit,
		logger:  logger,
		buffers: make(map[string]*memory.ConversationBuffer),
	}
}

// buffer returns the cached buffer for identity, loading it from the store on first use.
// Callers hold m.mu.
func (m *Manager) buffer(ctx context.Context, identity string) (*memory.ConversationBuffer, error) {
	if buf, ok := m.buffers[identity]; ok {
		return buf, nil
	}

	h, err := m.store.Load(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	buf := memory.NewConversationBuffer()
	for _, msg := range h.Messages {
		var chatMsg llms.ChatMessage
		switch msg.Role {
		case RoleUser:
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case RoleAssistant:
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		default:
			m.logger.Warn("Unknown history role, skipping", zap.String("role", msg.Role))
			continue
		}
		if err := buf.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.buffers[identity] = buf
	m.logger.Debug("Loaded history", zap.String("identity", identity), zap.Int("messages", len(h.Messages)))
	return buf, nil
}

// RecordExchange stores an utterance and the summary of what it was translated into.
func (m *Manager) RecordExchange(ctx context.Context, identity, utterance, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := m.buffer(ctx, identity)
	if err != nil {
		return err
	}

	if err := buf.ChatHistory.AddUserMessage(ctx, utterance); err != nil {
		return fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := buf.ChatHistory.AddAIMessage(ctx, summary); err != nil {
		return fmt.Errorf("failed to add AI message to memory: %w", err)
	}
	if err := m.trim(ctx, buf); err != nil {
		return err
	}

	now := time.Now()
	err = m.store.Append(ctx, identity,
		Message{Role: RoleUser, Content: utterance, Timestamp: now},
		Message{Role: RoleAssistant, Content: summary, Timestamp: now},
	)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (m *Manager) trim(ctx context.Context, buf *memory.ConversationBuffer) error {
	if m.limit <= 0 {
		return nil
	}
	msgs, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}
	if len(msgs) <= m.limit {
		return nil
	}
	return buf.ChatHistory.SetMessages(ctx, append([]llms.ChatMessage(nil), msgs[len(msgs)-m.limit:]...))
}

// FormattedHistory renders identity's history for a prompt, oldest first.
// It returns an empty string when there is nothing to show.
func (m *Manager) FormattedHistory(ctx context.Context, identity string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := m.buffer(ctx, identity)
	if err != nil {
		return "", err
	}

	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", msg.Content)
		}
	}
	return b.String(), nil
}

// Clear drops identity's history from the cache and the store.
func (m *Manager) Clear(ctx context.Context, identity string) error {
	m.mu.Lock()
	delete(m.buffers, identity)
	m.mu.Unlock()

	if err := m.store.Clear(ctx, identity); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
