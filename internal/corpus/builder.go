package corpus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/record"
)

const DefaultBatchSize = 32

// EmbeddingBackendError aborts a build when the embedder fails or returns
// vectors that cannot form a store. Query marks a failed free-text query
// embedding, which has no collection or offset.
type EmbeddingBackendError struct {
	Collection record.Kind
	Offset     int
	Query      bool
	Err        error
}

func (e *EmbeddingBackendError) Error() string {
	if e.Query {
		return fmt.Sprintf("embedding query text: %v", e.Err)
	}
	return fmt.Sprintf("embedding %s batch at offset %d: %v", e.Collection, e.Offset, e.Err)
}

func (e *EmbeddingBackendError) Unwrap() error { return e.Err }

// Builder embeds the processed text of records into a Store.
type Builder struct {
	embedder  ai.Embedder
	batchSize int
	logger    *zap.Logger
}

func NewBuilder(embedder ai.Embedder, batchSize int, logger *zap.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{embedder: embedder, batchSize: batchSize, logger: logger}
}

// Build returns a store whose i-th row is the embedding of records[i].
// Nothing is written to disk.
func (b *Builder) Build(ctx context.Context, kind record.Kind, records []*record.Record) (*Store, error) {
	store := NewEmptyStore(kind, b.embedder.Model())
	if len(records) == 0 {
		return store, nil
	}

	store.IDs = make([]string, 0, len(records))
	store.Embeddings = make([][]float32, 0, len(records))

	for start := 0; start < len(records); start += b.batchSize {
		end := min(start+b.batchSize, len(records))
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.ProcessedText
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, &EmbeddingBackendError{Collection: kind, Offset: start, Err: err}
		}
		if len(vectors) != len(batch) {
			return nil, &EmbeddingBackendError{
				Collection: kind,
				Offset:     start,
				Err:        fmt.Errorf("got %d vectors for %d texts", len(vectors), len(batch)),
			}
		}

		for i, vec := range vectors {
			if store.Dimensions == 0 {
				store.Dimensions = len(vec)
			}
			if len(vec) == 0 || len(vec) != store.Dimensions {
				return nil, &EmbeddingBackendError{
					Collection: kind,
					Offset:     start,
					Err:        fmt.Errorf("vector %d has dimension %d, expected %d", start+i, len(vec), store.Dimensions),
				}
			}
			store.IDs = append(store.IDs, batch[i].ID)
			store.Embeddings = append(store.Embeddings, vec)
		}

		b.logger.Debug("embedded batch",
			zap.String("collection", string(kind)),
			zap.Int("offset", start),
			zap.Int("size", len(batch)),
		)
	}

	store.CreatedAt = time.Now().UTC()
	return store, nil
}
