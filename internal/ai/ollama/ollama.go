// Package ollama talks to a local Ollama server for completions and embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
)

const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "llama3.2"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultTimeout        = 120 * time.Second
)

// Config holds connection settings shared by the generator and the embedder.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type client struct {
	http    *http.Client
	baseURL string
	model   string
	logger  *zap.Logger
}

func newClient(cfg Config, defaultModel string, logger *zap.Logger) client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		logger:  logger,
	}
}

func (c client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Generator produces completions through /api/chat.
type Generator struct {
	client
}

var _ ai.Generator = (*Generator)(nil)

func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	return &Generator{client: newClient(cfg, DefaultModel, logger)}
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Complete(ctx context.Context, req ai.Completion) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt must not be empty")
	}

	body := chatRequest{Model: g.model}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.MaxTokens > 0 || req.Temperature != nil {
		body.Options = &options{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}

	var resp chatResponse
	if err := g.post(ctx, "/api/chat", body, &resp); err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", errors.New("ollama returned empty response")
	}
	return text, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embedder produces embeddings through /api/embed, one request per batch.
type Embedder struct {
	client
}

var _ ai.Embedder = (*Embedder)(nil)

func NewEmbedder(cfg Config, logger *zap.Logger) *Embedder {
	return &Embedder{client: newClient(cfg, DefaultEmbeddingModel, logger)}
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := e.post(ctx, "/api/embed", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	e.logger.Debug("ollama embeddings received", zap.Int("texts", len(texts)))
	return resp.Embeddings, nil
}
