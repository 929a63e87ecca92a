// Package bow implements a deterministic bag-of-words embedder. Tokens are
// hashed into a fixed number of buckets so no vocabulary has to be prepared.
package bow

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/spigell/hh-matcher/internal/textnorm"
)

const DefaultDimensions = 1024

// Embedder hashes normalized tokens into term-count vectors.
type Embedder struct {
	dimensions int
}

// New returns an embedder producing vectors of the given size.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

func (e *Embedder) Model() string { return fmt.Sprintf("bow-fnv1a-%d", e.dimensions) }

func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed never fails; an empty text yields a zero vector.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}
	return vec
}

// Tokenize splits normalized text into words, keeping '+' and '#' so that
// names like c++ and c# survive.
func Tokenize(text string) []string {
	return strings.FieldsFunc(textnorm.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
