package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func Load() (*Config, error) {
	botConfig, err := loadBotConfig()
	if err != nil {
		return nil, err
	}

	access, err := loadAccessConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Bot:    botConfig,
		Ollama: loadOllamaConfig(),
		Access: access,
	}, nil
}

func loadBotConfig() (BotConfig, error) {
	provider := os.Getenv("BOT_PROVIDER")
	if provider == "" {
		provider = "telegram"
	}

	var token string
	switch provider {
	case "telegram":
		token = os.Getenv("TELEGRAM_TOKEN")
		if token == "" {
			return BotConfig{}, fmt.Errorf("TELEGRAM_TOKEN not set")
		}
	case "discord":
		token = os.Getenv("DISCORD_TOKEN")
		if token == "" {
			return BotConfig{}, fmt.Errorf("DISCORD_TOKEN not set")
		}
	default:
		return BotConfig{}, fmt.Errorf("unknown BOT_PROVIDER: %s", provider)
	}

	return BotConfig{
		Provider: provider,
		Token:    token,
	}, nil
}

func loadOllamaConfig() OllamaConfig {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	model := os.Getenv("INIT_MODEL")
	if model == "" {
		model = "llama3.2"
	}

	return OllamaConfig{
		Host:  host,
		Model: model,
	}
}

// loadAccessConfig merges the optional YAML access file with the
// ALLOWED_IDS / ADMIN_IDS env lists.
func loadAccessConfig() (AccessConfig, error) {
	var access AccessConfig

	if path := os.Getenv("TELOLLAMA_ACCESS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AccessConfig{}, fmt.Errorf("read access file: %w", err)
		}
		if err := yaml.Unmarshal(data, &access); err != nil {
			return AccessConfig{}, fmt.Errorf("parse access file: %w", err)
		}
	}

	allowed, err := parseIDList(os.Getenv("ALLOWED_IDS"))
	if err != nil {
		return AccessConfig{}, fmt.Errorf("ALLOWED_IDS: %w", err)
	}
	access.AllowedIDs = append(access.AllowedIDs, allowed...)

	admins, err := parseIDList(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return AccessConfig{}, fmt.Errorf("ADMIN_IDS: %w", err)
	}
	access.AdminIDs = append(access.AdminIDs, admins...)

	return access, nil
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
