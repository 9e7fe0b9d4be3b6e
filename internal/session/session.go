package session

import (
	"errors"
	"strings"

	"github.com/telollama/telollama/internal/ollama"
)

// ErrNotFound reports a history lookup for a user with no conversation.
var ErrNotFound = errors.New("no conversation for user")

func NewStore(defaultModel string) *Store {
	return &Store{
		conversations: make(map[int64]*Conversation),
		defaultModel:  defaultModel,
	}
}

// GetOrCreate returns the user's conversation, creating an empty one
// bound to model if none exists. Safe for concurrent callers; all callers
// racing on the same userID get the same conversation.
func (s *Store) GetOrCreate(userID int64, model string) *Conversation {
	s.mu.RLock()

	conv, ok := s.conversations[userID]
	s.mu.RUnlock()

	if ok {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok = s.conversations[userID]; ok {
		return conv
	}

	conv = &Conversation{model: model}
	s.conversations[userID] = conv

	return conv
}

// AppendUserTurn records a user turn, creating the conversation with the
// store's default model if it does not exist yet.
func (s *Store) AppendUserTurn(userID int64, content string, images []string) {
	conv := s.GetOrCreate(userID, s.defaultModel)
	conv.append(ollama.Message{Role: ollama.RoleUser, Content: content, Images: images})
}

// AppendAssistantTurn records an assistant turn. It is a no-op when the
// conversation is gone (e.g. reset while a request was in flight) or when
// the content trims to nothing; empty turns are never persisted.
func (s *Store) AppendAssistantTurn(userID int64, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	s.mu.RLock()
	conv, ok := s.conversations[userID]
	s.mu.RUnlock()

	if !ok {
		return
	}

	conv.append(ollama.Message{Role: ollama.RoleAssistant, Content: content})
}

// Reset removes the user's conversation entirely and reports whether one
// existed. Idempotent.
func (s *Store) Reset(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[userID]
	delete(s.conversations, userID)

	return ok
}

// History returns a snapshot of the user's turns in conversation order.
func (s *Store) History(userID int64) ([]ollama.Message, error) {
	s.mu.RLock()
	conv, ok := s.conversations[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return conv.Turns(), nil
}

func (c *Conversation) append(msg ollama.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, msg)
}

// Turns returns a copy of the turn history.
func (c *Conversation) Turns() []ollama.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]ollama.Message, len(c.turns))
	copy(copied, c.turns)

	return copied
}

func (c *Conversation) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// TryAcquire attempts to mark a generation request in flight for this
// conversation. Returns false if one already is.
func (c *Conversation) TryAcquire() bool {
	return c.processing.TryLock()
}

// Release clears the in-flight marker. Must be called on every exit path.
func (c *Conversation) Release() {
	c.processing.Unlock()
}
