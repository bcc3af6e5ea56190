// Package relevance answers "what else is relevant?" from a prompt and the
// documents a user has already selected.
package relevance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/index"
	"github.com/dshills/ctxrank/internal/searcher"
	"github.com/dshills/ctxrank/pkg/types"
)

// SecondaryPool is how many chunks Suggest keeps after reranking
const SecondaryPool = 24

// Status messages returned alongside results
const (
	StatusEmptyIndex = "The index is empty; build it before searching."
	StatusNoQuery    = "Nothing to search for: enter a prompt or select documents that have been indexed."
	StatusNoResults  = "No relevant documents found."
)

// Response is a ranked answer plus a human-readable status
type Response struct {
	Results []types.RelevanceResult
	Status  string
}

// Option configures a Facade
type Option func(*Facade)

// WithSearchConfig replaces searcher.DefaultConfig
func WithSearchConfig(cfg searcher.Config) Option {
	return func(f *Facade) { f.config = cfg }
}

// WithEngine shares a ranking engine (and its token cache) with other callers
func WithEngine(engine *searcher.Engine) Option {
	return func(f *Facade) {
		if engine != nil {
			f.engine = engine
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Facade builds queries from prompts and selections and ranks the index
type Facade struct {
	index    *index.Index
	embedder embedder.Embedder
	engine   *searcher.Engine
	config   searcher.Config
	logger   *slog.Logger
}

// New creates a facade over idx. emb must be the embedder the index was
// built with, or prompt vectors will not be comparable.
func New(idx *index.Index, emb embedder.Embedder, opts ...Option) *Facade {
	f := &Facade{
		index:    idx,
		embedder: emb,
		config:   searcher.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.engine == nil {
		f.engine = searcher.NewEngine(0)
	}
	return f
}

// Suggest ranks documents related to prompt and to the selected documents,
// never returning a selected one. The query is the prompt's embedding plus
// one centroid per selected document that has vectors. Having nothing to
// query with is reported in Status, not as an error.
func (f *Facade) Suggest(ctx context.Context, prompt string, selected []string) (*Response, error) {
	snapshot := f.index.Snapshot()
	if snapshot == nil {
		return &Response{Results: []types.RelevanceResult{}, Status: StatusEmptyIndex}, nil
	}

	vectors, err := f.promptVectors(ctx, prompt)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		centroid := searcher.Centroid(f.index.VectorsForDocument(id))
		if len(centroid) == 0 {
			f.logger.Debug("selected document has no vectors", "document", id)
			continue
		}
		vectors = append(vectors, centroid)
	}

	cfg := f.config
	cfg.Rerank = SecondaryPool
	cfg.Candidates = max(cfg.Candidates, SecondaryPool)

	return f.rank(ctx, vectors, searcher.RankRequest{
		Text:    prompt,
		Entries: snapshot,
		Config:  cfg,
		Exclude: selected,
	})
}

// Search ranks documents against free text. A non-empty include restricts
// results to those document IDs.
func (f *Facade) Search(ctx context.Context, query string, include []string) (*Response, error) {
	snapshot := f.index.Snapshot()
	if snapshot == nil {
		return &Response{Results: []types.RelevanceResult{}, Status: StatusEmptyIndex}, nil
	}

	vectors, err := f.promptVectors(ctx, query)
	if err != nil {
		return nil, err
	}

	return f.rank(ctx, vectors, searcher.RankRequest{
		Text:    query,
		Entries: snapshot,
		Config:  f.config,
		Include: include,
	})
}

func (f *Facade) promptVectors(ctx context.Context, prompt string) ([][]float32, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, nil
	}
	v, err := searcher.FromPrompt(ctx, f.embedder, prompt)
	if err != nil {
		return nil, err
	}
	return [][]float32{v}, nil
}

func (f *Facade) rank(ctx context.Context, vectors [][]float32, req searcher.RankRequest) (*Response, error) {
	q, err := searcher.NewMultiQuery(vectors...)
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return &Response{Results: []types.RelevanceResult{}, Status: StatusNoQuery}, nil
	}
	if err != nil {
		return nil, err
	}
	req.Query = q

	results, err := f.engine.Rank(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	f.logger.Debug("ranked", "query_vectors", q.Len(), "entries", len(req.Entries), "results", len(results))

	if len(results) == 0 {
		return &Response{Results: results, Status: StatusNoResults}, nil
	}
	noun := "documents"
	if len(results) == 1 {
		noun = "document"
	}
	return &Response{Results: results, Status: fmt.Sprintf("Found %d relevant %s.", len(results), noun)}, nil
}
