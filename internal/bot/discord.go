package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/telollama/telollama/internal/logger"
	"github.com/telollama/telollama/internal/relay"
)

type discord struct {
	session *discordgo.Session
	relay   *relay.Relay
	guards  guardChain
	ctx     context.Context
}

func newDiscord(cfg Config, r *relay.Relay) (Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	d := &discord{
		session: session,
		relay:   r,
	}

	d.guards = guardChain{{
		name:  "allowlist",
		allow: allowlisted(cfg.AllowedIDs),
		deny: func(userID, chatID int64) {
			logger.Warn("message from unlisted user dropped", "user", userID, "channel", chatID)
		},
	}}

	session.AddHandler(d.handleMessage)

	return d, nil
}

func (d *discord) Start(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return err
	}

	<-ctx.Done()
	return d.session.Close()
}

func (d *discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	userID := snowflake(m.Author.ID)
	chatID := snowflake(m.ChannelID)

	if !d.guards.admit(userID, chatID) {
		return
	}

	logger.Info("message received", "from", m.Author.Username, "text", truncate(m.Content, 50))

	switch strings.TrimSpace(m.Content) {
	case "!reset":
		if d.relay.Reset(userID) {
			logger.Info("chat reset", "user", userID)
			d.Send(chatID, "Chat has been reset")
		}
		return
	case "!history":
		turns, err := d.relay.History(userID)
		if err != nil {
			d.Send(chatID, "No chat history available for this user")
			return
		}
		d.SendMarkdown(chatID, formatHistory(turns))
		return
	}

	in := relay.Inbound{
		UserID:   userID,
		ChatID:   chatID,
		Text:     m.Content,
		ChatKind: relay.ChatPrivate,
	}

	// guild channels behave like group chats: answers get recorded,
	// questions get matched against them
	if m.GuildID != "" {
		in.ChatKind = relay.ChatGroup
	}

	if m.ReferencedMessage != nil {
		in.IsReply = true
		in.RepliedText = m.ReferencedMessage.Content
	}

	d.relay.Handle(d.ctx, d, in)
}

func (d *discord) Send(chatID int64, text string) error {
	channelID := strconv.FormatInt(chatID, 10)
	_, err := d.session.ChannelMessageSend(channelID, text)
	if err != nil {
		logger.Error("discord send failed", "error", err, "channelID", channelID)
	}
	return err
}

// SendMarkdown is plain Send for discord, which renders markdown natively.
func (d *discord) SendMarkdown(chatID int64, text string) error {
	return d.Send(chatID, text)
}

func (d *discord) SendTyping(chatID int64) error {
	return d.session.ChannelTyping(strconv.FormatInt(chatID, 10))
}

// snowflake parses a discord id; they are numeric strings.
func snowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		logger.Warn("non-numeric discord id", "id", id)
		return 0
	}
	return n
}
