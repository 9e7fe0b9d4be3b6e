package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/telollama/telollama/internal/bot"
	"github.com/telollama/telollama/internal/config"
	"github.com/telollama/telollama/internal/logger"
	"github.com/telollama/telollama/internal/ollama"
	"github.com/telollama/telollama/internal/relay"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	client := ollama.NewClient(cfg.Ollama.Host)
	r := relay.New(client, cfg.Ollama.Model)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 10*time.Second)
	models, err := client.ListModels(checkCtx)
	checkCancel()
	if err != nil {
		logger.Warn("ollama not reachable yet", "host", cfg.Ollama.Host, "error", err)
	} else {
		logger.Info("ollama connected", "host", cfg.Ollama.Host, "models", len(models))
	}

	b, err := bot.New(bot.Config{
		Provider:   cfg.Bot.Provider,
		Token:      cfg.Bot.Token,
		AllowedIDs: cfg.Access.AllowedIDs,
		AdminIDs:   cfg.Access.AdminIDs,
	}, r)
	if err != nil {
		logger.Fatal("failed to create bot", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("bot stopped", "error", err)
		}
	}()

	logger.Info("telollama started",
		"bot", cfg.Bot.Provider,
		"model", cfg.Ollama.Model,
		"ollama", cfg.Ollama.Host,
		"allowed", len(cfg.Access.AllowedIDs),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}
