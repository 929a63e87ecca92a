package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-matcher/internal/ai"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	embeddingTaskType     = "SEMANTIC_SIMILARITY"

	// dimensionProbeText is embedded once when only empty texts were seen.
	dimensionProbeText = "dimension"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces text embeddings with the Gemini embedding models.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int
	logger     *zap.Logger

	observed atomic.Int64
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder. A positive dimensions value requests a
// reduced output dimensionality from the API.
func NewEmbedder(client *genai.Client, model string, dimensions int, logger *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{models: client.Models, model: model, dimensions: dimensions, logger: logger}, nil
}

func (e *Embedder) Model() string { return e.model }

// Embed requests embeddings for all non-empty texts in one call. Empty texts
// get a zero vector. Its dimension is the configured one, else the last one the
// API returned, else it is learned with a single extra request.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	positions := make([]int, 0, len(texts))
	batch := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		positions = append(positions, i)
		batch = append(batch, text)
	}

	if len(batch) > 0 {
		vectors, err := e.request(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, vec := range vectors {
			out[positions[i]] = vec
		}
	}

	if len(batch) == len(texts) {
		return out, nil
	}

	dim, err := e.dimension(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i] == nil {
			out[i] = make([]float32, dim)
		}
	}

	return out, nil
}

func (e *Embedder) dimension(ctx context.Context) (int, error) {
	if e.dimensions > 0 {
		return e.dimensions, nil
	}
	if dim := e.observed.Load(); dim > 0 {
		return int(dim), nil
	}

	vectors, err := e.request(ctx, []string{dimensionProbeText})
	if err != nil {
		return 0, fmt.Errorf("detect embedding dimension: %w", err)
	}
	return len(vectors[0]), nil
}

func (e *Embedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	config := &genai.EmbedContentConfig{TaskType: embeddingTaskType}
	if e.dimensions > 0 {
		config.OutputDimensionality = ptr(int32(e.dimensions))
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(contents) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", got, len(contents))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned an empty embedding for text %d", i)
		}
		vectors[i] = emb.Values
	}
	e.observed.Store(int64(len(vectors[0])))

	e.logger.Debug("gemini embeddings received",
		zap.Int("texts", len(contents)),
		zap.Int("dimensions", len(vectors[0])),
	)

	return vectors, nil
}
