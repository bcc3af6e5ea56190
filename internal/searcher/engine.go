package searcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ctxrank/internal/index"
	"github.com/dshills/ctxrank/internal/vector"
	"github.com/dshills/ctxrank/pkg/types"
)

const (
	DefaultCandidates    = 100
	DefaultRerank        = 30
	DefaultTopKPerFile   = 3
	DefaultVectorWeight  = 0.75
	DefaultNameWeight    = 0.10
	DefaultKeywordWeight = 0.15
	DefaultLambda        = 0.7
	DefaultMinScore      = 0.05

	// DefaultTokenCacheSize bounds how many chunk texts keep their token sets
	DefaultTokenCacheSize = 10000

	// rejectedScore is the score of entries filtered out by Exclude or Include
	rejectedScore = -1.0

	// shardSize is the number of entries one scoring goroutine handles
	shardSize = 256
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid search config")

// Config weights and bounds one ranking
type Config struct {
	Candidates  int // pool size after scoring
	Rerank      int // chunks kept by MMR
	TopKPerFile int // chunks summed into a file's score

	VectorWeight  float64
	NameWeight    float64
	KeywordWeight float64

	// RecencyWeight is accepted but not applied: entries carry no timestamps
	RecencyWeight float64

	Lambda   float64 // MMR trade-off: 1 is pure relevance, 0 pure novelty
	MinScore float64 // scores at or below are dropped
}

// DefaultConfig returns the hybrid ranking used for search and suggestions
func DefaultConfig() Config {
	return Config{
		Candidates:    DefaultCandidates,
		Rerank:        DefaultRerank,
		TopKPerFile:   DefaultTopKPerFile,
		VectorWeight:  DefaultVectorWeight,
		NameWeight:    DefaultNameWeight,
		KeywordWeight: DefaultKeywordWeight,
		Lambda:        DefaultLambda,
		MinScore:      DefaultMinScore,
	}
}

// CosineConfig ranks by vector similarity alone with no diversification
func CosineConfig() Config {
	cfg := DefaultConfig()
	cfg.VectorWeight = 1
	cfg.NameWeight = 0
	cfg.KeywordWeight = 0
	cfg.Rerank = cfg.Candidates
	cfg.Lambda = 1
	return cfg
}

// Validate checks the config is usable
func (c Config) Validate() error {
	switch {
	case c.Candidates <= 0:
		return fmt.Errorf("%w: candidates must be positive", ErrInvalidConfig)
	case c.Rerank < 0:
		return fmt.Errorf("%w: rerank must not be negative", ErrInvalidConfig)
	case c.TopKPerFile < 0:
		return fmt.Errorf("%w: top_k_per_file must not be negative", ErrInvalidConfig)
	case c.VectorWeight < 0 || c.NameWeight < 0 || c.KeywordWeight < 0 || c.RecencyWeight < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.Lambda < 0 || c.Lambda > 1:
		return fmt.Errorf("%w: lambda must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// RankRequest is one ranking over an index snapshot
type RankRequest struct {
	Query   MultiQuery
	Text    string                 // raw query text for keyword and name scoring
	Entries map[string]index.Entry // index key to vector and chunk text
	Config  Config

	Exclude []string // document IDs never returned
	Include []string // when non-empty, only these document IDs are returned
}

type candidate struct {
	key      string
	score    float64
	vector   []float32
	text     string
	rejected bool // excluded, or outside Include
}

// Engine ranks index entries against a query. It is safe for concurrent use.
type Engine struct {
	tokens  *lru.Cache[string, tokenSet]
	tracer  trace.Tracer
	workers int
}

// NewEngine creates an engine that remembers the token sets of up to
// cacheSize chunk texts. A non-positive size selects DefaultTokenCacheSize.
func NewEngine(cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = DefaultTokenCacheSize
	}
	cache, err := lru.New[string, tokenSet](cacheSize)
	if err != nil {
		// This should never happen with a positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Engine{
		tokens:  cache,
		tracer:  otel.Tracer("github.com/dshills/ctxrank/internal/searcher"),
		workers: runtime.NumCPU(),
	}
}

// Rank scores every entry, keeps the best Candidates, diversifies them with
// MMR and sums the best TopKPerFile chunks of each file. Files come back best
// first, ties by path. An empty pool gives an empty, non-nil result.
func (e *Engine) Rank(ctx context.Context, req RankRequest) ([]types.RelevanceResult, error) {
	ctx, span := e.tracer.Start(ctx, "searcher.Rank", trace.WithAttributes(
		attribute.Int("entries", len(req.Entries)),
		attribute.Int("query_vectors", req.Query.Len()),
	))
	defer span.End()

	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := e.score(ctx, req)
	if err != nil {
		return nil, err
	}
	pool = candidatePool(pool, cfg)
	span.SetAttributes(attribute.Int("candidates", len(pool)))
	if len(pool) == 0 {
		return []types.RelevanceResult{}, nil
	}

	rerank := cfg.Rerank
	if rerank == 0 {
		rerank = cfg.Candidates
	}
	selected := mmr(pool, rerank, cfg.Lambda)
	results := aggregate(selected, cfg.TopKPerFile)
	span.SetAttributes(attribute.Int("results", len(results)))

	return results, nil
}

// score computes the hybrid score of every entry in parallel. Candidates come
// back in index key order.
func (e *Engine) score(ctx context.Context, req RankRequest) ([]candidate, error) {
	keys := make([]string, 0, len(req.Entries))
	for k := range req.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exclude := toSet(req.Exclude)
	include := toSet(req.Include)
	queryTokens := Keywords(req.Text)
	cfg := req.Config

	// Path token sets are shared by every chunk of a file
	pathTokens := make(map[string]tokenSet)
	for _, k := range keys {
		id := types.DocumentID(k)
		if _, ok := pathTokens[id]; !ok {
			pathTokens[id] = newTokenSet(id)
		}
	}

	out := make([]candidate, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for start := 0; start < len(keys); start += shardSize {
		end := min(start+shardSize, len(keys))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				key := keys[i]
				entry := req.Entries[key]
				out[i] = candidate{key: key, vector: entry.Vector, text: entry.Text, score: rejectedScore, rejected: true}

				id := types.DocumentID(key)
				if _, ok := exclude[id]; ok {
					continue
				}
				if len(include) > 0 {
					if _, ok := include[id]; !ok {
						continue
					}
				}
				out[i].rejected = false

				hybrid := cfg.VectorWeight * req.Query.Score(entry.Vector)
				if len(queryTokens) > 0 {
					hybrid += cfg.NameWeight * coverage(queryTokens, pathTokens[id])
					if entry.Text != "" {
						hybrid += cfg.KeywordWeight * coverage(queryTokens, e.tokenSet(entry.Text))
					}
				}
				out[i].score = hybrid
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) tokenSet(text string) tokenSet {
	if set, ok := e.tokens.Get(text); ok {
		return set
	}
	set := newTokenSet(text)
	e.tokens.Add(text, set)
	return set
}

// candidatePool drops filtered entries and scores at or below MinScore, sorts
// the rest best first (stable, so ties keep index key order) and keeps the top
// Candidates.
func candidatePool(scored []candidate, cfg Config) []candidate {
	pool := make([]candidate, 0, len(scored))
	for _, c := range scored {
		if c.rejected {
			continue
		}
		if c.score > cfg.MinScore {
			pool = append(pool, c)
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].score > pool[j].score
	})

	if len(pool) > cfg.Candidates {
		pool = pool[:cfg.Candidates]
	}
	return pool
}

// mmr greedily selects up to k candidates. The first pick is the top of the
// pool; each later pick maximises
//
//	lambda*score - (1-lambda)*max cosine to anything already selected
//
// with ties going to the earlier candidate.
func mmr(pool []candidate, k int, lambda float64) []candidate {
	if len(pool) == 0 || k <= 0 {
		return nil
	}
	k = min(k, len(pool))

	selected := make([]candidate, 0, k)
	selected = append(selected, pool[0])

	remaining := append([]candidate(nil), pool[1:]...)
	similarity := make([]float64, len(remaining))
	for i, c := range remaining {
		similarity[i] = vector.Cosine(c.vector, pool[0].vector)
	}

	for len(selected) < k && len(remaining) > 0 {
		best := -1
		bestValue := math.Inf(-1)
		for i, c := range remaining {
			value := lambda*c.score - (1-lambda)*similarity[i]
			if value > bestValue {
				best, bestValue = i, value
			}
		}

		pick := remaining[best]
		selected = append(selected, pick)
		remaining = append(remaining[:best], remaining[best+1:]...)
		similarity = append(similarity[:best], similarity[best+1:]...)

		for i, c := range remaining {
			similarity[i] = max(similarity[i], vector.Cosine(c.vector, pick.vector))
		}
	}

	return selected
}

// aggregate groups chunks by file and sums each file's best topK scores. A
// non-positive topK sums every chunk.
func aggregate(chunks []candidate, topK int) []types.RelevanceResult {
	byFile := make(map[string][]candidate)
	var order []string
	for _, c := range chunks {
		id := types.DocumentID(c.key)
		if _, ok := byFile[id]; !ok {
			order = append(order, id)
		}
		byFile[id] = append(byFile[id], c)
	}

	results := make([]types.RelevanceResult, 0, len(order))
	for _, id := range order {
		fileChunks := byFile[id]
		sort.SliceStable(fileChunks, func(i, j int) bool {
			return fileChunks[i].score > fileChunks[j].score
		})
		if topK > 0 && len(fileChunks) > topK {
			fileChunks = fileChunks[:topK]
		}

		result := types.RelevanceResult{Path: id, Chunks: make([]string, 0, len(fileChunks))}
		for _, c := range fileChunks {
			result.Score += c.score
			result.Chunks = append(result.Chunks, c.text)
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	return results
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
