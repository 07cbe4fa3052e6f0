package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"message-scheduler/internal/model"
)

// MemoryStore is the in-memory message collection shared by the API
// handlers and the dispatcher. Every operation holds mu for its whole
// duration and only copies cross the boundary in either direction.
type MemoryStore struct {
	mu       sync.Mutex
	messages []model.Message

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// New creates an empty message store
func New() *MemoryStore {
	return &MemoryStore{
		now:   time.Now,
		newID: uuid.NewRandom,
	}
}

// List returns a snapshot of all messages in insertion order
func (s *MemoryStore) List() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Get returns the message with the given id
func (s *MemoryStore) Get(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}
	return s.messages[i].Clone(), true
}

// Create stores a new message. Any id, created_at or sent value supplied
// by the caller is discarded.
func (s *MemoryStore) Create(draft model.Message) (model.Message, error) {
	id, err := s.newID()
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to generate message id: %w", err)
	}

	msg := draft.Clone()
	createdAt := s.now().UTC()
	msg.ID = id.String()
	msg.CreatedAt = &createdAt
	msg.Sent = false

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	return msg.Clone(), nil
}

// Update replaces the caller-editable fields of a message. The path id
// always wins over draft.ID, and created_at and sent are kept from the
// stored record.
func (s *MemoryStore) Update(id string, draft model.Message) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}

	current := s.messages[i]
	msg := draft.Clone()
	msg.ID = id
	msg.CreatedAt = current.CreatedAt
	msg.Sent = current.Sent

	s.messages[i] = msg
	return msg.Clone(), true
}

// Delete removes the message and returns it
func (s *MemoryStore) Delete(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}

	msg := s.messages[i]
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	return msg, true
}

// MarkSent flips the sent flag of a message in place. Other fields are left
// alone so an update that raced with the dispatcher is not lost.
func (s *MemoryStore) MarkSent(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}

	s.messages[i].Sent = true
	return s.messages[i].Clone(), true
}

// Len returns the number of stored messages
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Pending returns the number of scheduled messages not yet sent
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.CountBy(s.messages, func(m model.Message) bool {
		return !m.Sent && m.SendAt != nil
	})
}

// indexOf must be called with mu held
func (s *MemoryStore) indexOf(id string) int {
	_, i, ok := lo.FindIndexOf(s.messages, func(m model.Message) bool {
		return m.ID == id
	})
	if !ok {
		return -1
	}
	return i
}
