package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ctxrank/internal/chunker"
	"github.com/dshills/ctxrank/internal/embedcache"
	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/index"
	"github.com/dshills/ctxrank/internal/vector"
	"github.com/dshills/ctxrank/pkg/types"
)

const (
	// DefaultBatchSize is the number of chunks sent to the provider per call
	DefaultBatchSize = 16

	// DefaultGracePeriod is how long Start waits for a superseded run to stop
	DefaultGracePeriod = 2 * time.Second
)

var (
	ErrNoEmbedder        = errors.New("build options: embedder is required")
	ErrNoChunker         = errors.New("build options: chunker is required")
	ErrNoCorpus          = errors.New("corpus is required")
	ErrNoBuild           = errors.New("no build has been started")
	ErrEmbeddingMismatch = errors.New("provider returned mismatched embeddings")
)

// Extractor rewrites a document's content before chunking
type Extractor func(content, path string) string

// BuildOptions are the collaborators a build runs with. They are fixed for
// the lifetime of one run.
type BuildOptions struct {
	Embedder  embedder.Embedder
	Chunker   chunker.Chunker
	Extractor Extractor // optional
	Loader    Loader    // optional, defaults to the corpus' own loader or ReadFile
	BatchSize int       // default: DefaultBatchSize
	Workers   int       // default: runtime.NumCPU()
}

func (o BuildOptions) validate() error {
	if o.Embedder == nil {
		return ErrNoEmbedder
	}
	if o.Chunker == nil {
		return ErrNoChunker
	}
	return nil
}

func (o BuildOptions) withDefaults(corpus Corpus) BuildOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	o.BatchSize = min(o.BatchSize, embedder.MaxBatchSize)
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Loader == nil {
		if l, ok := corpus.(interface {
			Load(context.Context, Source) (string, error)
		}); ok {
			o.Loader = l.Load
		} else {
			o.Loader = ReadFile
		}
	}
	return o
}

// Config contains configuration for the service
type Config struct {
	Logger      *slog.Logger  // default: slog.Default()
	GracePeriod time.Duration // default: DefaultGracePeriod
}

// Service owns the index and runs builds into it, one at a time
type Service struct {
	index  *index.Index
	cache  *embedcache.Cache
	logger *slog.Logger
	tracer trace.Tracer
	grace  time.Duration

	startMu sync.Mutex // serialises Start, Clear

	mu         sync.Mutex
	current    *run
	corpusName string
}

type run struct {
	tracker *tracker
	cancel  context.CancelFunc
	done    chan struct{}

	stats *Statistics
	err   error
}

// pendingChunk is a cache miss waiting for the provider
type pendingChunk struct {
	cacheKey string
	indexKey string
	text     string
}

// New creates a Service writing into idx and reusing vectors from cache.
// Nil arguments are replaced by empty, non-persistent ones.
func New(idx *index.Index, cache *embedcache.Cache, cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	if idx == nil {
		idx = index.New()
	}
	if cache == nil {
		cache = embedcache.New(nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &Service{
		index:  idx,
		cache:  cache,
		logger: logger,
		tracer: otel.Tracer("github.com/dshills/ctxrank/internal/indexer"),
		grace:  grace,
	}
}

// Index returns the index builds write into
func (s *Service) Index() *index.Index { return s.index }

// Cache returns the embedding cache builds read and fill
func (s *Service) Cache() *embedcache.Cache { return s.cache }

// Start launches a background build of corpus and returns its run ID. A run
// already in flight is cancelled first; Start waits up to the grace period
// for it to stop. The build outlives ctx: stop it with Cancel.
func (s *Service) Start(ctx context.Context, corpus Corpus, opts BuildOptions) (string, error) {
	r, err := s.start(context.WithoutCancel(ctx), corpus, opts)
	if err != nil {
		return "", err
	}
	return r.tracker.runID, nil
}

// Build runs a build and waits for it. Cancelling ctx cancels the build,
// which then returns its partial statistics with StatusCancelled. Like Start,
// it supersedes any run in flight.
func (s *Service) Build(ctx context.Context, corpus Corpus, opts BuildOptions) (*Statistics, error) {
	r, err := s.start(ctx, corpus, opts)
	if err != nil {
		return nil, err
	}

	<-r.done
	return r.stats, r.err
}

func (s *Service) start(ctx context.Context, corpus Corpus, opts BuildOptions) (*run, error) {
	if corpus == nil {
		return nil, ErrNoCorpus
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.stopCurrent()

	s.mu.Lock()
	defer s.mu.Unlock()

	if name := corpus.Name(); name != s.corpusName {
		if s.corpusName != "" {
			s.logger.Info("corpus changed, clearing index", "from", s.corpusName, "to", name)
			s.index.Clear()
		}
		s.corpusName = name
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		tracker: newTracker(uuid.NewString()),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.current = r

	go func() {
		defer close(r.done)
		defer cancel()
		r.stats, r.err = s.build(runCtx, corpus, opts.withDefaults(corpus), r.tracker)
	}()

	return r, nil
}

// stopCurrent cancels the current run and waits up to the grace period for it
func (s *Service) stopCurrent() {
	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()

	if prev == nil {
		return
	}

	prev.cancel()
	select {
	case <-prev.done:
	case <-time.After(s.grace):
		s.logger.Warn("superseded build still running after grace period",
			"run_id", prev.tracker.runID, "grace", s.grace)
	}
}

// Cancel requests cancellation of the running build. It reports whether a
// build was running.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	select {
	case <-s.current.done:
		return false
	default:
		s.current.cancel()
		return true
	}
}

// Clear stops any running build and empties the index. The embedding cache
// is kept.
func (s *Service) Clear() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.stopCurrent()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Clear()
	s.corpusName = ""
}

// Wait blocks until the most recent build finishes or ctx is done
func (s *Service) Wait(ctx context.Context) (*Statistics, error) {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return nil, ErrNoBuild
	}

	select {
	case <-r.done:
		return r.stats, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Progress returns a snapshot of the most recent build
func (s *Service) Progress() Progress {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return Progress{Status: StatusIdle}
	}
	return r.tracker.snapshot()
}

// ProgressText renders Progress as a polling string
func (s *Service) ProgressText() string {
	return s.Progress().String()
}

// Snapshot returns the indexed vectors, or nil when the index is empty
func (s *Service) Snapshot() map[string][]float32 {
	snapshot := s.index.Snapshot()
	if snapshot == nil {
		return nil
	}
	return index.Vectors(snapshot)
}

// VectorsForDocument returns the vectors of a document's chunks in order
func (s *Service) VectorsForDocument(documentID string) [][]float32 {
	return s.index.VectorsForDocument(documentID)
}

func (s *Service) build(ctx context.Context, corpus Corpus, opts BuildOptions, t *tracker) (*Statistics, error) {
	ctx, span := s.tracer.Start(ctx, "indexer.Build", trace.WithAttributes(
		attribute.String("run_id", t.runID),
		attribute.String("corpus", corpus.Name()),
		attribute.String("model", opts.Embedder.Model()),
		attribute.String("chunker", opts.Chunker.CacheKey()),
	))
	defer span.End()

	logger := s.logger.With("run_id", t.runID)
	logger.Info("index build started",
		"corpus", corpus.Name(), "model", opts.Embedder.Model(), "chunker", opts.Chunker.CacheKey())

	sources, err := corpus.Sources(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(t, logger, 0), nil
		}
		t.finish(StatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("index build failed", "error", err)
		return t.statistics(0), fmt.Errorf("enumerate corpus: %w", err)
	}
	t.documentsTotal.Store(int32(len(sources)))

	pending, produced, err := s.discover(ctx, sources, opts, t, logger)
	if err != nil {
		return s.cancelled(t, logger, 0), nil
	}

	// Chunks that no longer exist: removed documents, shrunk documents
	pruned := 0
	pruning := func() {
		pruned = s.index.Retain(func(key string) bool {
			_, ok := produced[key]
			return ok
		})
	}
	if !s.commit(ctx, pruning) {
		return s.cancelled(t, logger, 0), nil
	}

	t.setPhase(PhaseEmbedding)
	added, cancelled := s.embed(ctx, pending, opts, t, logger)
	if cancelled {
		return s.cancelled(t, logger, pruned), nil
	}

	if added > 0 {
		t.setPhase(PhasePersisting)
		if err := s.cache.Persist(ctx); err != nil {
			logger.Error("persisting embedding cache failed", "error", err)
			t.recordError("persist: %v", err)
			span.RecordError(err)
		}
	}

	t.finish(StatusCompleted)
	stats := t.statistics(pruned)
	span.SetAttributes(
		attribute.Int("documents", stats.DocumentsIndexed),
		attribute.Int("chunks", stats.ChunksTotal),
		attribute.Int("cache_hits", stats.CacheHits),
		attribute.Int("embedded", stats.ChunksEmbedded),
	)
	logger.Info("index build completed",
		"documents", stats.DocumentsIndexed,
		"skipped", stats.DocumentsSkipped,
		"chunks", stats.ChunksTotal,
		"cache_hits", stats.CacheHits,
		"embedded", stats.ChunksEmbedded,
		"failed_batches", stats.BatchesFailed,
		"duration", stats.Duration)

	return stats, nil
}

func (s *Service) cancelled(t *tracker, logger *slog.Logger, pruned int) *Statistics {
	t.finish(StatusCancelled)
	stats := t.statistics(pruned)
	logger.Info("index build cancelled",
		"documents", stats.DocumentsIndexed, "embedded", stats.ChunksEmbedded)
	return stats
}

// discover loads and chunks every document, resolving cache hits straight
// into the index. It returns the misses in document order, then ordinal
// order, and the set of index keys the corpus now produces.
func (s *Service) discover(ctx context.Context, sources []Source, opts BuildOptions, t *tracker, logger *slog.Logger) ([]pendingChunk, map[string]struct{}, error) {
	ctx, span := s.tracer.Start(ctx, "indexer.discover")
	defer span.End()

	model := opts.Embedder.Model()
	chunkerKey := opts.Chunker.CacheKey()

	perDocument := make([][]pendingChunk, len(sources))
	keys := make([][]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := opts.Loader(gctx, src)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				t.documentsSkipped.Add(1)
				t.documentsProcessed.Add(1)
				t.recordError("%s: %v", src.ID, err)
				logger.Warn("skipping unreadable document", "document", src.ID, "error", err)
				return nil
			}

			if opts.Extractor != nil {
				content = opts.Extractor(content, src.ID)
			}

			identity := embedcache.Identity(src.ID, chunkerKey, model)
			ordinal := 0
			for text := range opts.Chunker.Chunk(content) {
				if strings.TrimSpace(text) == "" {
					continue
				}
				key := types.IndexKey(src.ID, ordinal)
				ordinal++
				keys[i] = append(keys[i], key)
				t.chunksTotal.Add(1)

				cacheKey := embedcache.KeyFor(identity, text)
				if v, ok := s.cache.TryGet(cacheKey); ok {
					if !vector.IsUnit(v) {
						v = vector.Normalize(v)
					}
					if !s.commit(gctx, func() { s.index.Set(key, index.Entry{Vector: v, Text: text}) }) {
						return gctx.Err()
					}
					t.cacheHits.Add(1)
					continue
				}

				// The old vector belongs to different text
				if !s.commit(gctx, func() { s.index.Delete(key) }) {
					return gctx.Err()
				}
				perDocument[i] = append(perDocument[i], pendingChunk{
					cacheKey: cacheKey,
					indexKey: key,
					text:     text,
				})
			}

			t.documentsProcessed.Add(1)
			logger.Debug("document chunked", "document", src.ID, "chunks", ordinal, "pending", len(perDocument[i]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var pending []pendingChunk
	produced := make(map[string]struct{})
	for i := range sources {
		pending = append(pending, perDocument[i]...)
		for _, key := range keys[i] {
			produced[key] = struct{}{}
		}
	}
	span.SetAttributes(attribute.Int("pending", len(pending)))

	return pending, produced, nil
}

// embed sends pending chunks to the provider in batches. A failed batch is
// logged and dropped. It returns how many vectors were added and whether the
// run was cancelled.
func (s *Service) embed(ctx context.Context, pending []pendingChunk, opts BuildOptions, t *tracker, logger *slog.Logger) (int, bool) {
	ctx, span := s.tracer.Start(ctx, "indexer.embed", trace.WithAttributes(
		attribute.Int("pending", len(pending)),
		attribute.Int("batch_size", opts.BatchSize),
	))
	defer span.End()

	added := 0
	for start := 0; start < len(pending); start += opts.BatchSize {
		if ctx.Err() != nil {
			return added, true
		}

		batch := pending[start:min(start+opts.BatchSize, len(pending))]
		if err := s.embedBatch(ctx, opts.Embedder, batch); err != nil {
			if ctx.Err() != nil {
				return added, true
			}
			t.batchesFailed.Add(1)
			t.recordError("batch %d: %v", start/opts.BatchSize, err)
			logger.Warn("embedding batch failed, dropping it",
				"batch", start/opts.BatchSize, "size", len(batch), "error", err)
			continue
		}

		added += len(batch)
		t.chunksEmbedded.Add(int32(len(batch)))
	}

	return added, false
}

func (s *Service) embedBatch(ctx context.Context, emb embedder.Embedder, batch []pendingChunk) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return err
	}
	if len(resp.Embeddings) != len(batch) {
		return fmt.Errorf("%w: %d embeddings for %d texts", ErrEmbeddingMismatch, len(resp.Embeddings), len(batch))
	}
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Vector) == 0 {
			return fmt.Errorf("%w: empty embedding at %d", ErrEmbeddingMismatch, i)
		}
	}

	written := s.commit(ctx, func() {
		for i, e := range resp.Embeddings {
			v := vector.Normalize(e.Vector)
			s.index.Set(batch[i].indexKey, index.Entry{Vector: v, Text: batch[i].text})
			s.cache.Set(batch[i].cacheKey, v)
		}
	})
	if !written {
		return ctx.Err()
	}
	return nil
}

// commit runs fn under the service lock unless the run's ctx is done. start
// cancels the previous run before it takes the lock to clear the index, so a
// superseded run that ignores cancellation never writes after the clear.
func (s *Service) commit(ctx context.Context, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	fn()
	return true
}
