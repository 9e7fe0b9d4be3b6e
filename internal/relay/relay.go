package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/telollama/telollama/internal/logger"
	"github.com/telollama/telollama/internal/ollama"
	"github.com/telollama/telollama/internal/qa"
	"github.com/telollama/telollama/internal/session"
)

const (
	busyMessage    = "I'm still working on your previous request. I'll get to this once I'm done!"
	failureMessage = "Something went wrong."
)

// Relay routes platform messages to the generation backend and back:
// private chats get a full conversation, group chats get the
// answer-reuse flow.
type Relay struct {
	sessions *session.Store
	answers  *qa.Index
	backend  Backend

	mu           sync.Mutex
	model        string
	defaultModel string
}

func New(backend Backend, initialModel string) *Relay {
	return &Relay{
		sessions:     session.NewStore(initialModel),
		answers:      qa.NewIndex(),
		backend:      backend,
		model:        initialModel,
		defaultModel: initialModel,
	}
}

// Model returns the model new conversations are bound to.
func (r *Relay) Model() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model
}

func (r *Relay) SetModel(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.model = model
	logger.Info("model switched", "model", model)
}

// DefaultModel returns the model configured at startup.
func (r *Relay) DefaultModel() string {
	return r.defaultModel
}

func (r *Relay) Models(ctx context.Context) ([]ollama.Model, error) {
	return r.backend.ListModels(ctx)
}

// Reset drops the user's conversation and reports whether one existed.
// An in-flight request for that user is not cancelled; its final session
// append will no-op against the removed conversation.
func (r *Relay) Reset(userID int64) bool {
	return r.sessions.Reset(userID)
}

func (r *Relay) History(userID int64) ([]ollama.Message, error) {
	return r.sessions.History(userID)
}

// AppendPrompt records freeform text into the user's session without
// running generation. Used by the system prompt edit flow.
func (r *Relay) AppendPrompt(userID int64, prompt string) {
	r.sessions.GetOrCreate(userID, r.Model())
	r.sessions.AppendUserTurn(userID, prompt, nil)
}

// Handle processes one inbound message. Errors never escape: every
// failure is logged and turned into a generic notice for the user.
func (r *Relay) Handle(ctx context.Context, conn Transport, in Inbound) {
	switch in.ChatKind {
	case ChatGroup, ChatSupergroup:
		r.handleGroup(ctx, conn, in)
	default:
		r.respond(ctx, conn, in)
	}
}

// respond runs the private-chat flow: append the user turn, stream the
// generation, deliver the terminal flush.
func (r *Relay) respond(ctx context.Context, conn Transport, in Inbound) {
	prompt := strings.TrimSpace(in.Prompt())
	if prompt == "" {
		return
	}

	conv := r.sessions.GetOrCreate(in.UserID, r.Model())
	if !conv.TryAcquire() {
		if err := conn.Send(in.ChatID, busyMessage); err != nil {
			logger.Error("busy notice not delivered", "error", err, "user", in.UserID)
		}
		return
	}
	defer conv.Release()

	if err := conn.SendTyping(in.ChatID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	r.sessions.AppendUserTurn(in.UserID, prompt, in.Images)

	request := uuid.NewString()[:8]
	logger.Info("generation started", "request", request, "user", in.UserID, "model", conv.Model())

	disp := &Dispatcher{
		sessions: r.sessions,
		conn:     conn,
		model:    conv.Model(),
		userID:   in.UserID,
		chatID:   in.ChatID,
		request:  request,
	}

	req := ollama.ChatRequest{Model: conv.Model(), Messages: conv.Turns()}
	if err := r.stream(ctx, req, disp.Dispatch); err != nil {
		logger.Error("generation failed", "request", request, "user", in.UserID, "error", err)
		if err := conn.Send(in.ChatID, failureMessage); err != nil {
			logger.Error("failure notice not delivered", "request", request, "error", err)
		}
	}
}

// handleGroup runs the group-chat flow: replies record question/answer
// pairs, questions get checked against the recorded ones.
func (r *Relay) handleGroup(ctx context.Context, conn Transport, in Inbound) {
	question := strings.TrimSpace(in.RepliedText)
	answer := strings.TrimSpace(in.Text)

	if in.IsReply && question != "" && answer != "" {
		r.answers.Record(question, answer)
		logger.Info("answer recorded", "chat", in.ChatID, "entries", r.answers.Len())

		if err := conn.Send(in.ChatID, "Answer saved.\nQuestion: "+question); err != nil {
			logger.Error("confirmation not delivered", "error", err, "chat", in.ChatID)
		}
		return
	}

	if !strings.HasSuffix(in.Text, "?") {
		return
	}

	prompt := strings.TrimSpace(in.Text)
	stored, ok := r.answers.FindSimilar(prompt, qa.DefaultThreshold)
	if !ok {
		return
	}

	r.reuse(ctx, conn, in, prompt, stored)
}

// reuse answers a near-duplicate question: the stored human answer plus
// a fresh generation, delivered together. The generation runs to
// completion with no incremental delivery and its output is not
// committed back to the session.
func (r *Relay) reuse(ctx context.Context, conn Transport, in Inbound, prompt, stored string) {
	conv := r.sessions.GetOrCreate(in.UserID, r.Model())
	if !conv.TryAcquire() {
		logger.Debug("reuse skipped, request in flight", "user", in.UserID)
		return
	}
	defer conv.Release()

	r.sessions.AppendUserTurn(in.UserID, prompt, in.Images)

	request := uuid.NewString()[:8]
	logger.Info("reuse generation started", "request", request, "user", in.UserID, "model", conv.Model())

	var final string
	req := ollama.ChatRequest{Model: conv.Model(), Messages: conv.Turns()}
	err := r.stream(ctx, req, func(f Flush) error {
		if f.Done {
			final = f.Text
		}
		return nil
	})
	if err != nil {
		logger.Error("reuse generation failed", "request", request, "error", err)
		if err := conn.Send(in.ChatID, failureMessage); err != nil {
			logger.Error("failure notice not delivered", "request", request, "error", err)
		}
		return
	}

	text := fmt.Sprintf("Similar question: %s\nSaved answer: %s\n\nGenerated answer: %s",
		prompt, stored, FormatReply(final, conv.Model(), 0))

	if err := conn.Send(in.ChatID, text); err != nil {
		logger.Error("reuse reply not delivered", "request", request, "error", err)
	}
}

// stream consumes one chat stream, feeding chunks through an aggregator
// and handing each flush event to fn. Returns after the terminal chunk;
// a stream whose whole output trims to nothing produces no events.
func (r *Relay) stream(ctx context.Context, req ollama.ChatRequest, fn func(Flush) error) error {
	s, err := r.backend.ChatStream(ctx, req)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer s.Close()

	var agg Aggregator
	for {
		chunk, err := s.Next()
		if err != nil {
			return fmt.Errorf("backend stream: %w", err)
		}

		if flush, ok := agg.Push(chunk); ok {
			if err := fn(flush); err != nil {
				return err
			}
			if flush.Done {
				return nil
			}
		}

		if chunk.Done {
			return nil
		}
	}
}
