// Package ranking scores a query vector against every row of an embedding
// store by cosine similarity.
package ranking

import (
	"fmt"
	"math"
	"slices"

	"github.com/spigell/hh-matcher/internal/corpus"
)

// Match is one ranked row.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// DimensionMismatchError reports a query or row whose length differs from the store dimension.
type DimensionMismatchError struct {
	Expected int
	Got      int
	Row      int // -1 for the query vector
}

func (e *DimensionMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("query dimension %d does not match store dimension %d", e.Got, e.Expected)
	}
	return fmt.Sprintf("row %d has dimension %d, expected %d", e.Row, e.Got, e.Expected)
}

// Rank returns at most topN rows ordered by descending similarity. Rows with
// equal scores keep their store order.
func Rank(query []float32, store *corpus.Store, topN int) ([]Match, error) {
	if store == nil || len(store.Embeddings) == 0 {
		return []Match{}, nil
	}

	dim := len(store.Embeddings[0])
	if store.Dimensions > 0 {
		dim = store.Dimensions
	}
	if len(query) != dim {
		return nil, &DimensionMismatchError{Expected: dim, Got: len(query), Row: -1}
	}
	if len(store.IDs) != len(store.Embeddings) {
		return nil, fmt.Errorf("store has %d ids and %d rows", len(store.IDs), len(store.Embeddings))
	}
	if topN <= 0 {
		return []Match{}, nil
	}

	queryNorm := norm(query)
	matches := make([]Match, len(store.Embeddings))
	for i, row := range store.Embeddings {
		if len(row) != dim {
			return nil, &DimensionMismatchError{Expected: dim, Got: len(row), Row: i}
		}
		matches[i] = Match{ID: store.IDs[i], Score: cosine(query, queryNorm, row)}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	return matches[:min(topN, len(matches))], nil
}

// Cosine is the cosine similarity of two vectors of the same length. A zero
// vector on either side yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, norm(a), b)
}

func cosine(q []float32, qNorm float64, row []float32) float64 {
	rowNorm := norm(row)
	if qNorm == 0 || rowNorm == 0 {
		return 0
	}

	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(row[i])
	}

	score := dot / (qNorm * rowNorm)
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, score))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
