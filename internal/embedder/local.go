package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/ctxrank/internal/vector"
)

// LocalProvider produces deterministic offline embeddings by feature hashing:
// each lowercase word is hashed to a signed bucket and the bucket counts are
// L2-normalised. Texts sharing vocabulary land close together, which is
// enough for offline use and for tests. It never makes a network call.
type LocalProvider struct {
	model     string
	dimension int
	memo      *Memo
}

// NewLocalProvider creates a local embedder. A non-positive dimension selects
// LocalDimension.
func NewLocalProvider(dimension int, memo *Memo) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     fmt.Sprintf("local-hash-%d", dimension),
		dimension: dimension,
		memo:      memo,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := checkText(req.Text); err != nil {
		return nil, err
	}

	emb, hash, ok := l.memo.lookup(ProviderLocal, l.model, req.Text)
	if ok {
		return emb, nil
	}

	emb = &Embedding{
		Vector:    l.embed(req.Text),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	l.memo.store(emb)

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := checkBatch(req.Texts); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) embed(text string) []float32 {
	v := make([]float32, l.dimension)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		words = []string{text}
	}

	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		bucket := binary.LittleEndian.Uint32(sum[:4]) % uint32(l.dimension)
		if sum[4]&1 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	return vector.Normalize(v)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
