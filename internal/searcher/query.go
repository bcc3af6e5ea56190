package searcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/vector"
)

// ErrEmptyQuery is returned when a query has no usable vector
var ErrEmptyQuery = errors.New("query has no usable vectors")

// MultiQuery is an ordered set of unit query vectors. An item scores as well
// as its best match against any of them.
type MultiQuery struct {
	vectors [][]float32
}

// NewMultiQuery normalises vectors into a query, dropping empty and all-zero
// ones. It fails with ErrEmptyQuery when nothing remains.
func NewMultiQuery(vectors ...[]float32) (MultiQuery, error) {
	q := MultiQuery{vectors: make([][]float32, 0, len(vectors))}
	for _, v := range vectors {
		if len(v) == 0 || vector.IsZero(v) {
			continue
		}
		q.vectors = append(q.vectors, vector.Normalize(v))
	}
	if len(q.vectors) == 0 {
		return MultiQuery{}, ErrEmptyQuery
	}
	return q, nil
}

// Len is the number of query vectors
func (q MultiQuery) Len() int { return len(q.vectors) }

// Vectors returns the query vectors in order. They must not be modified.
func (q MultiQuery) Vectors() [][]float32 { return q.vectors }

// Score is the maximum cosine similarity between v and any query vector, or 0
// for an empty query.
func (q MultiQuery) Score(v []float32) float64 {
	if len(q.vectors) == 0 {
		return 0
	}
	best := -1.0
	for _, qv := range q.vectors {
		best = max(best, vector.Cosine(qv, v))
	}
	return best
}

// Centroid is the normalised mean of a document's chunk vectors. Vectors whose
// dimension differs from the first are ignored; no vectors yields an empty one.
func Centroid(vectors [][]float32) []float32 {
	return vector.Centroid(vectors)
}

// FromPrompt embeds free text into a unit query vector
func FromPrompt(ctx context.Context, emb embedder.Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return vector.Normalize(embedding.Vector), nil
}
