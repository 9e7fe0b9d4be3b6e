package session

import (
	"sync"

	"github.com/telollama/telollama/internal/ollama"
)

// Conversation is one user's chat state: the model bound at creation and
// the ordered turn history. processing serializes generation requests so
// at most one is in flight per user.
type Conversation struct {
	mu         sync.Mutex
	model      string
	turns      []ollama.Message
	processing sync.Mutex
}

type Store struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation
	defaultModel  string
}
