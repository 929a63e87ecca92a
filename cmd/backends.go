package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/ai/bow"
	"github.com/spigell/hh-matcher/internal/ai/gemini"
	"github.com/spigell/hh-matcher/internal/ai/ollama"
	"github.com/spigell/hh-matcher/internal/corpus"
	"github.com/spigell/hh-matcher/internal/explain"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/secrets"
)

const (
	providerGemini = "gemini"
	providerOllama = "ollama"
	providerBOW    = "bow"

	explainStoreFile   = "file"
	explainStoreSQLite = "sqlite"
)

// backends constructs model clients once per process and shares the Gemini
// client between the embedder and the generator.
type backends struct {
	cfg    *Config
	logger *zap.Logger

	client *genai.Client
}

func (b *backends) geminiClient(ctx context.Context) (*genai.Client, error) {
	if b.client != nil {
		return b.client, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: b.cfg.Gemini.APIKey,
		File:  b.cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	b.client = client
	return client, nil
}

func (b *backends) embedder(ctx context.Context) (ai.Embedder, error) {
	cfg := b.cfg.Embedder
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	log := logger.WithBackend(b.logger, "embedder", provider, cfg.Model)

	switch provider {
	case providerBOW:
		return bow.New(cfg.Dimensions), nil
	case providerOllama:
		return ollama.NewEmbedder(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model}, log), nil
	case providerGemini, "":
		client, err := b.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client, cfg.Model, cfg.Dimensions, log)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

func (b *backends) generator(ctx context.Context) (ai.Generator, error) {
	cfg := b.cfg.Generator
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	log := logger.WithFields(
		logger.WithBackend(b.logger, "generator", provider, cfg.Model),
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	switch provider {
	case providerOllama:
		return ollama.NewGenerator(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model}, log), nil
	case providerGemini, "":
		client, err := b.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(client, cfg.Model, cfg.MaxRetries, log)
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Provider)
	}
}

func (b *backends) explainer(ctx context.Context) (*explain.Cache, explain.Store, error) {
	generator, err := b.generator(ctx)
	if err != nil {
		return nil, nil, err
	}

	var store explain.Store
	switch strings.ToLower(strings.TrimSpace(b.cfg.Explain.Store)) {
	case explainStoreFile, "":
		store = explain.OpenFileStore(filepath.Join(b.cfg.ProcessedDir, corpus.ExplanationCacheFile), b.logger)
	case explainStoreSQLite:
		store, err = explain.OpenSQLiteStore(filepath.Join(b.cfg.ProcessedDir, corpus.ExplanationCacheDB))
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unsupported explain store: %s", b.cfg.Explain.Store)
	}

	cache := explain.NewCache(generator, store, explain.Options{
		TextBudget:   b.cfg.Explain.TextBudget,
		MaxTokens:    b.cfg.Generator.MaxTokens,
		Temperature:  &b.cfg.Generator.Temperature,
		MaxLogLength: b.cfg.Generator.MaxLogLength,
	}, b.logger)

	return cache, store, nil
}
