package embedder

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is one vector produced by a provider
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // MemoKey of the model and text
}

// EmbeddingRequest asks for the vector of a single text
type EmbeddingRequest struct {
	Text  string
	Model string // empty selects the provider's model
}

// BatchEmbeddingRequest asks for the vectors of several texts in one call
type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

// BatchEmbeddingResponse carries one embedding per request text, in request
// order.
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns text into vectors. Implementations must be safe for
// concurrent use; the indexer and the query path share one.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch embeds every text or fails as a whole
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	Dimension() int
	Provider() string
	Model() string
	Close() error
}

func checkText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}

func checkBatch(texts []string) error {
	switch {
	case len(texts) == 0:
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	case len(texts) > MaxBatchSize:
		return fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(texts), MaxBatchSize)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
