package bot

import "context"

// Bot is a chat platform connection. Every implementation also satisfies
// relay.Transport so the relay can deliver through it.
type Bot interface {
	Start(ctx context.Context) error
	Send(chatID int64, text string) error
	SendMarkdown(chatID int64, text string) error
	SendTyping(chatID int64) error
}

type Config struct {
	Provider   string
	Token      string
	AllowedIDs []int64
	AdminIDs   []int64
}
