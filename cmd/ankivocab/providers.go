package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/japaniel/ankivocab/pkg/config"
	"github.com/japaniel/ankivocab/pkg/db"
	"github.com/japaniel/ankivocab/pkg/images"
	"github.com/japaniel/ankivocab/pkg/llm"
)

// buildChat returns the configured chat client wrapped with the retry policy.
func buildChat(cfg *config.Config, log *slog.Logger) (llm.Chatter, error) {
	var c llm.Chatter
	switch cfg.Providers.ChatProvider {
	case config.ChatOpenAI:
		c = llm.NewOpenAIClient(cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIBaseURL)
	case config.ChatAnthropic:
		c = llm.NewAnthropicClient(cfg.Providers.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Providers.ChatProvider)
	}
	return llm.WithRetry(c, cfg.Retry.Policy(), log.With("component", "chat")), nil
}

func buildGenerator(ctx context.Context, cfg *config.Config, log *slog.Logger) (images.Generator, error) {
	log = log.With("component", "images")
	p := cfg.Providers
	switch p.ImageProvider {
	case config.ImageImagen:
		gen, err := images.NewImagenGenerator(ctx, p.GeminiAPIKey, p.ImagenModel, p.ImageSize, cfg.Retry.Policy(), log)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ImageGPT, config.ImageDallE3:
		return &images.OpenAIGenerator{
			Client: llm.NewOpenAIClient(p.OpenAIAPIKey, p.OpenAIBaseURL),
			Model:  p.ImageProvider,
			Size:   p.ImageSize,
			Retry:  cfg.Retry.Policy(),
			Log:    log,
		}, nil
	}
	return nil, fmt.Errorf("unknown image provider %q", p.ImageProvider)
}

// openStore opens the history database, or an in-memory store with --no-history.
func (a *app) openStore() (db.Store, error) {
	if a.noHistory {
		a.log.Info("history disabled, using in-memory store")
		return db.NewMemoryStore(), nil
	}
	path := a.cfg.Paths.HistoryDB
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	store, err := db.OpenSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	a.log.Debug("history database opened", slog.String("path", path))
	return store, nil
}
