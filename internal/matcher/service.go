// Package matcher is the query side of the system: it ranks a job or a free
// text against a collection and attaches explanations on request.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/corpus"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/ranking"
	"github.com/spigell/hh-matcher/internal/record"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

var ErrRecordNotFound = errors.New("record not found")

// Explainer returns an explanation for a matched pair. It never fails.
type Explainer interface {
	GetOrGenerate(ctx context.Context, job, candidate string, score float64) string
}

// Result is a ranked record of the target collection.
type Result struct {
	Rank        int            `json:"rank"`
	ID          string         `json:"id"`
	Score       float64        `json:"score"`
	Record      *record.Record `json:"record,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

// Service answers one query at a time over the loaded artifacts.
type Service struct {
	loader    *corpus.Loader
	embedder  ai.Embedder
	explainer Explainer
	logger    *zap.Logger
}

// New creates the service. embedder is only needed for free-text queries and
// explainer only for explanations; both may be nil otherwise.
func New(loader *corpus.Loader, embedder ai.Embedder, explainer Explainer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{loader: loader, embedder: embedder, explainer: explainer, logger: log}
}

func (s *Service) LoadCorpus() (*corpus.Corpus, error) { return s.loader.LoadCorpus() }

func (s *Service) LoadEmbeddings() (map[record.Kind]*corpus.Store, error) {
	return s.loader.LoadEmbeddings()
}

func (s *Service) store(kind record.Kind) (*corpus.Store, error) {
	stores, err := s.loader.LoadEmbeddings()
	if err != nil {
		return nil, err
	}
	store, ok := stores[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", record.ErrUnknownKind, kind)
	}
	return store, nil
}

// Rank scores query against every row of the collection.
func (s *Service) Rank(query []float32, kind record.Kind, topN int) ([]ranking.Match, error) {
	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(query, store, topN)
}

// JobVector returns the stored embedding of a job.
func (s *Service) JobVector(jobID string) ([]float32, error) {
	store, err := s.store(record.KindJobs)
	if err != nil {
		return nil, err
	}
	vec, ok := store.Row(jobID)
	if !ok {
		return nil, fmt.Errorf("%w: job %q", ErrRecordNotFound, jobID)
	}
	return vec, nil
}

// EmbedSingle embeds one text after the same normalization as the build.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	vectors, err := s.embedder.Embed(ctx, []string{textnorm.Normalize(text)})
	if err != nil {
		return nil, &corpus.EmbeddingBackendError{Query: true, Err: err}
	}
	if len(vectors) != 1 {
		return nil, &corpus.EmbeddingBackendError{Query: true, Err: fmt.Errorf("got %d vectors for 1 text", len(vectors))}
	}
	return vectors[0], nil
}

// Explain returns the explanation of a pair, or "" when explanations are disabled.
func (s *Service) Explain(ctx context.Context, job, candidate string, score float64) string {
	if s.explainer == nil {
		return ""
	}
	return s.explainer.GetOrGenerate(ctx, job, candidate, score)
}

// MatchJob ranks the collection against a stored job.
func (s *Service) MatchJob(ctx context.Context, jobID string, kind record.Kind, topN int, explain bool) ([]Result, error) {
	c, err := s.loader.LoadCorpus()
	if err != nil {
		return nil, err
	}
	job, ok := c.Find(record.KindJobs, jobID)
	if !ok {
		return nil, fmt.Errorf("%w: job %q", ErrRecordNotFound, jobID)
	}

	query, err := s.JobVector(jobID)
	if err != nil {
		return nil, err
	}

	return s.match(ctx, c, job.ID, job.ProcessedText, query, kind, topN, explain)
}

// MatchText ranks the collection against a free-text query.
func (s *Service) MatchText(ctx context.Context, text string, kind record.Kind, topN int, explain bool) ([]Result, error) {
	c, err := s.loader.LoadCorpus()
	if err != nil {
		return nil, err
	}

	if s.embedder != nil {
		if store, err := s.store(kind); err == nil && store.Model != "" && store.Model != s.embedder.Model() {
			s.logger.Warn("query embedder differs from the one used at build time",
				zap.String("store_model", store.Model),
				zap.String("embedder_model", s.embedder.Model()),
			)
		}
	}

	query, err := s.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	return s.match(ctx, c, "", textnorm.Normalize(text), query, kind, topN, explain)
}

func (s *Service) match(ctx context.Context, c *corpus.Corpus, jobID, jobText string, query []float32, kind record.Kind, topN int, explain bool) ([]Result, error) {
	matches, err := s.Rank(query, kind, topN)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(matches))
	for i, m := range matches {
		res := Result{Rank: i + 1, ID: m.ID, Score: m.Score}
		if r, ok := c.Find(kind, m.ID); ok {
			res.Record = r
		} else {
			s.logger.Warn("ranked id has no record", zap.String(logger.FieldCollection, string(kind)), zap.String("id", m.ID))
		}

		if explain && res.Record != nil {
			res.Explanation = s.Explain(ctx, jobText, res.Record.ProcessedText, m.Score)
		}
		results = append(results, res)
	}

	s.logger.Debug("match finished",
		append(logger.MatchFields(jobID, ""),
			zap.String(logger.FieldCollection, string(kind)),
			zap.Int("results", len(results)),
		)...,
	)
	return results, nil
}
