package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps history in process memory. Used when no Redis URL is configured.
type InMemoryStore struct {
	mu        sync.Mutex
	histories map[string]*History
	limit     int
}

func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{
		histories: make(map[string]*History),
		limit:     limit,
	}
}

func (s *InMemoryStore) Load(_ context.Context, identity string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[identity]
	if !ok {
		return newHistory(identity, time.Now()), nil
	}
	cp := *h
	cp.Messages = append([]Message(nil), h.Messages...)
	return &cp, nil
}

func (s *InMemoryStore) Append(_ context.Context, identity string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[identity]
	if !ok {
		h = newHistory(identity, time.Now())
		s.histories[identity] = h
	}
	h.appendTrimmed(s.limit, time.Now(), msgs...)
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, identity)
	return nil
}
