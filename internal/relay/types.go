package relay

import (
	"context"

	"github.com/telollama/telollama/internal/ollama"
)

// Transport is the outbound side of the chat platform, implemented by
// the bot package.
type Transport interface {
	Send(chatID int64, text string) error
	SendTyping(chatID int64) error
}

// Backend is the streaming generation service.
type Backend interface {
	ChatStream(ctx context.Context, req ollama.ChatRequest) (ollama.Stream, error)
	ListModels(ctx context.Context) ([]ollama.Model, error)
}

// Chat kinds as the platform reports them.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
)

// Inbound is a platform message normalized for the relay. Images are
// base64-encoded photo payloads; Caption carries the prompt when the
// message is a photo.
type Inbound struct {
	UserID      int64
	ChatID      int64
	Text        string
	Caption     string
	Images      []string
	ChatKind    string
	IsReply     bool
	RepliedText string
}

// Prompt returns the text to generate against.
func (in Inbound) Prompt() string {
	if in.Text != "" {
		return in.Text
	}
	return in.Caption
}
