// Package explain produces natural-language match explanations and keeps
// every generated text in a write-once store.
package explain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/logger"
)

// Fallback is returned when the generation backend fails.
const Fallback = "Could not generate an explanation. Please try again."

const defaultMaxLogLength = 200

// GenerationBackendError wraps a failed generation call. It never leaves the
// Cache; callers get Fallback instead.
type GenerationBackendError struct {
	Key string
	Err error
}

func (e *GenerationBackendError) Error() string {
	return fmt.Sprintf("generate explanation %s: %v", e.Key, e.Err)
}

func (e *GenerationBackendError) Unwrap() error { return e.Err }

// Options tune the generation request.
type Options struct {
	TextBudget   int
	MaxTokens    int
	Temperature  *float64
	MaxLogLength int
}

func (o Options) withDefaults() Options {
	if o.TextBudget <= 0 {
		o.TextBudget = DefaultTextBudget
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == nil {
		t := DefaultTemperature
		o.Temperature = &t
	}
	if o.MaxLogLength <= 0 {
		o.MaxLogLength = defaultMaxLogLength
	}
	return o
}

// Cache generates an explanation at most once per key.
type Cache struct {
	generator ai.Generator
	store     Store
	opts      Options
	logger    *zap.Logger
}

func NewCache(generator ai.Generator, store Store, opts Options, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{generator: generator, store: store, opts: opts.withDefaults(), logger: log}
}

// GetOrGenerate returns the stored explanation for the triple or generates,
// stores and returns a new one. It always returns a text.
func (c *Cache) GetOrGenerate(ctx context.Context, job, candidate string, score float64) string {
	key := Key(job, candidate, score)
	log := c.logger.With(zap.String("key", key))

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn("explanation cache lookup failed, generating", zap.Error(err))
	}
	if ok {
		log.Debug("explanation cache hit")
		return cached
	}

	prompt := buildPrompt(job, candidate, score, c.opts.TextBudget)
	log.Debug("explanation cache miss, requesting generation", logger.Preview("prompt", prompt, c.opts.MaxLogLength)...)

	text, err := c.generator.Complete(ctx, ai.Completion{
		System:      SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		genErr := &GenerationBackendError{Key: key, Err: err}
		log.Error("explanation generation failed", zap.Error(genErr))
		return Fallback
	}

	log.Debug("explanation generated", logger.Preview("response", text, c.opts.MaxLogLength)...)

	stored, err := c.store.Put(ctx, key, text)
	if err != nil {
		log.Error("explanation not persisted", zap.Error(err))
		return text
	}
	return stored
}
