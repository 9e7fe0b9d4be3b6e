package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telollama/telollama/internal/logger"
	"github.com/telollama/telollama/internal/ollama"
	"github.com/telollama/telollama/internal/relay"
)

const maxImageSize = 20 * 1024 * 1024 // 20MB limit for images

var startKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("ℹ️ About", "about"),
		tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", "settings"),
	),
)

var settingsKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Switch LLM", "switchllm"),
		tgbotapi.NewInlineKeyboardButtonData("✏️ Edit system prompt", "editsystemprompt"),
	),
)

type telegram struct {
	api    *tgbotapi.BotAPI
	relay  *relay.Relay
	guards guardChain
	admins guardChain

	// users that pressed "Edit system prompt" and owe us the new prompt
	pendingMu     sync.Mutex
	pendingPrompt map[int64]bool
}

func newTelegram(cfg Config, r *relay.Relay) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	t := &telegram{
		api:           api,
		relay:         r,
		pendingPrompt: make(map[int64]bool),
	}

	t.guards = guardChain{{
		name:  "allowlist",
		allow: allowlisted(cfg.AllowedIDs),
		deny: func(userID, chatID int64) {
			logger.Warn("message from unlisted user dropped", "user", userID, "chat", chatID)
		},
	}}

	t.admins = guardChain{{
		name:  "admin",
		allow: memberOf(cfg.AdminIDs),
		deny: func(userID, chatID int64) {
			logger.Warn("admin surface denied", "user", userID, "chat", chatID)
		},
	}}

	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start"},
		tgbotapi.BotCommand{Command: "reset", Description: "Reset Chat"},
		tgbotapi.BotCommand{Command: "history", Description: "Look through messages"},
	)
	if _, err := api.Request(commands); err != nil {
		logger.Warn("failed to register commands", "error", err)
	}

	return t, nil
}

func (t *telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			switch {
			case update.CallbackQuery != nil:
				go t.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				go t.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (t *telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !t.guards.admit(userID, chatID) {
		return
	}

	if msg.IsCommand() {
		t.handleCommand(msg)
		return
	}

	if msg.Chat.IsPrivate() && msg.Text != "" && t.takePendingPrompt(userID) {
		t.relay.AppendPrompt(userID, msg.Text)
		logger.Info("system prompt updated", "user", userID)

		if err := t.Send(chatID, "System prompt updated."); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}
		return
	}

	in := relay.Inbound{
		UserID:   userID,
		ChatID:   chatID,
		Text:     msg.Text,
		Caption:  msg.Caption,
		ChatKind: msg.Chat.Type,
	}

	if msg.ReplyToMessage != nil {
		in.IsReply = true
		in.RepliedText = msg.ReplyToMessage.Text
	}

	if len(msg.Photo) > 0 {
		// telegram sends several sizes, the last is the largest
		photo := msg.Photo[len(msg.Photo)-1]

		encoded, err := t.downloadPhoto(photo.FileID)
		if err != nil {
			logger.Error("failed to download photo", "error", err)
		} else {
			in.Images = append(in.Images, encoded)
		}

		logger.Info("photo received", "user", userID, "caption", truncate(msg.Caption, 50))
	} else {
		logger.Info("message received", "user", userID, "kind", msg.Chat.Type, "text", truncate(msg.Text, 50))
	}

	t.relay.Handle(ctx, t, in)
}

func (t *telegram) handleCommand(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Welcome, <b>%s</b>!", name))
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyMarkup = startKeyboard
		reply.DisableWebPagePreview = true

		if _, err := t.api.Send(reply); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}

	case "reset":
		if t.relay.Reset(userID) {
			logger.Info("chat reset", "user", userID)

			if err := t.Send(chatID, "Chat has been reset"); err != nil {
				logger.Error("send failed", "error", err, "chatID", chatID)
			}
		}

	case "history":
		turns, err := t.relay.History(userID)
		if err != nil {
			if err := t.Send(chatID, "No chat history available for this user"); err != nil {
				logger.Error("send failed", "error", err, "chatID", chatID)
			}
			return
		}

		if err := t.SendMarkdown(chatID, formatHistory(turns)); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}
	}
}

func (t *telegram) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	if !t.guards.admit(userID, chatID) {
		return
	}

	switch {
	case query.Data == "about":
		if !t.admins.admit(userID, chatID) {
			t.answerCallback(query.ID, "Admins only.")
			return
		}

		text := fmt.Sprintf("<b>Your LLM</b>\nCurrently using: <code>%s</code>\nDefault model: <code>%s</code>",
			t.relay.Model(), t.relay.DefaultModel())

		reply := tgbotapi.NewMessage(chatID, text)
		reply.ParseMode = tgbotapi.ModeHTML
		reply.DisableWebPagePreview = true

		if _, err := t.api.Send(reply); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}
		t.answerCallback(query.ID, "")

	case query.Data == "settings":
		reply := tgbotapi.NewMessage(chatID, "Choose an option.")
		reply.ReplyMarkup = settingsKeyboard

		if _, err := t.api.Send(reply); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}
		t.answerCallback(query.ID, "")

	case query.Data == "switchllm":
		models, err := t.relay.Models(ctx)
		if err != nil {
			logger.Error("model list failed", "error", err)
			t.answerCallback(query.ID, "Could not list models.")
			return
		}

		text := fmt.Sprintf("%d models available.\n🦙 = Regular\n🦙📷 = Multimodal", len(models))
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, query.Message.MessageID, text, modelKeyboard(models))

		if _, err := t.api.Send(edit); err != nil {
			logger.Error("edit failed", "error", err, "chatID", chatID)
		}
		t.answerCallback(query.ID, "")

	case query.Data == "editsystemprompt":
		t.pendingMu.Lock()
		t.pendingPrompt[userID] = true
		t.pendingMu.Unlock()

		if err := t.Send(chatID, "Please enter a new system prompt."); err != nil {
			logger.Error("send failed", "error", err, "chatID", chatID)
		}
		t.answerCallback(query.ID, "")

	case strings.HasPrefix(query.Data, "model_"):
		model := strings.TrimPrefix(query.Data, "model_")
		t.relay.SetModel(model)
		t.answerCallback(query.ID, "Chosen model: "+model)
	}
}

func (t *telegram) answerCallback(id, text string) {
	if _, err := t.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Debug("callback answer failed", "error", err)
	}
}

func (t *telegram) takePendingPrompt(userID int64) bool {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	if !t.pendingPrompt[userID] {
		return false
	}

	delete(t.pendingPrompt, userID)
	return true
}

func (t *telegram) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.api.Send(msg)
	if err != nil {
		logger.Error("send failed", "error", err, "chatID", chatID)
	}
	return err
}

func (t *telegram) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.api.Send(msg)
	if err != nil {
		logger.Error("send failed", "error", err, "chatID", chatID)
	}
	return err
}

func (t *telegram) SendTyping(chatID int64) error {
	_, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// downloadPhoto fetches a photo from telegram and returns it
// base64-encoded for the generation backend.
func (t *telegram) downloadPhoto(fileID string) (string, error) {
	file, err := t.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", err
	}

	url := file.Link(t.api.Token)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

func modelKeyboard(models []ollama.Model) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, model := range models {
		label := strings.TrimSpace(model.Name + " " + familyIcons(model.Details.Families))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "model_"+model.Name),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatHistory(turns []ollama.Message) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "*%s*: %s\n", capitalize(turn.Role), turn.Content)
	}

	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
