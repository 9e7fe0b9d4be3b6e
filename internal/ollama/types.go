package ollama

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation in the wire format the chat
// endpoint expects. Images are base64-encoded payloads and only appear
// on user turns.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChatChunk is one element of the streamed chat response. Message is nil
// for heartbeat chunks. TotalDuration is only set on the terminal chunk
// (done=true) and decodes directly from Ollama's nanosecond count.
type ChatChunk struct {
	Message       *Message      `json:"message"`
	Done          bool          `json:"done"`
	TotalDuration time.Duration `json:"total_duration"`
}

type Model struct {
	Name    string       `json:"name"`
	Details ModelDetails `json:"details"`
}

type ModelDetails struct {
	Families []string `json:"families"`
}
