// Package ai declares the model backends used by the matcher. Implementations
// live in the subpackages and are constructed once at process start.
package ai

import "context"

// Completion is a single generation request. A nil Temperature leaves the
// backend default in place; zero asks for deterministic sampling.
type Completion struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Generator produces text for a prompt.
type Generator interface {
	Complete(ctx context.Context, req Completion) (string, error)
	Model() string
}

// Embedder converts texts into fixed-dimension vectors. The vector of a text
// must not depend on the other texts of the call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
