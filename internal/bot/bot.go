package bot

import (
	"fmt"

	"github.com/telollama/telollama/internal/relay"
)

func New(cfg Config, r *relay.Relay) (Bot, error) {
	switch cfg.Provider {
	case "telegram":
		return newTelegram(cfg, r)
	case "discord":
		return newDiscord(cfg, r)
	default:
		return nil, fmt.Errorf("unknown bot provider: %s", cfg.Provider)
	}
}
