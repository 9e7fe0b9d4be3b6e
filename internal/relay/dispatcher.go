package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/telollama/telollama/internal/logger"
	"github.com/telollama/telollama/internal/session"
)

// Dispatcher decides what to do with flush events for one request.
// Partial flushes are observed but nothing is delivered until the
// terminal one, which is sent to the chat and committed to the session.
type Dispatcher struct {
	sessions *session.Store
	conn     Transport
	model    string
	userID   int64
	chatID   int64
	request  string
}

func (d *Dispatcher) Dispatch(f Flush) error {
	if !f.Done {
		logger.Debug("partial flush", "request", d.request, "chars", len(f.Text))
		return nil
	}

	text := FormatReply(f.Text, d.model, f.Duration)
	if err := d.conn.Send(d.chatID, text); err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	d.sessions.AppendAssistantTurn(d.userID, f.Text)
	logger.Info("response delivered", "request", d.request, "user", d.userID, "chars", len(f.Text))

	return nil
}

// FormatReply builds the delivery message: the generated text, the model
// that produced it and, when known, the generation time in seconds.
func FormatReply(text, model string, duration time.Duration) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n⚙️ ")
	b.WriteString(model)

	if duration > 0 {
		fmt.Fprintf(&b, "\nGenerated in %.2fs.", duration.Seconds())
	}

	return b.String()
}
