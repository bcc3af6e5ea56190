// Package workspace wires configuration into a ready indexer and relevance
// facade. The MCP server and the CLI both start from a Workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/ctxrank/internal/chunker"
	"github.com/dshills/ctxrank/internal/config"
	"github.com/dshills/ctxrank/internal/embedcache"
	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/index"
	"github.com/dshills/ctxrank/internal/indexer"
	"github.com/dshills/ctxrank/internal/parser"
	"github.com/dshills/ctxrank/internal/relevance"
	"github.com/dshills/ctxrank/internal/searcher"
	"github.com/dshills/ctxrank/internal/storage"
)

// Root validation errors
var (
	ErrRootRequired    = errors.New("path is required")
	ErrRootNotAbsolute = errors.New("path must be absolute")
	ErrRootNotFound    = errors.New("path does not exist")
	ErrRootNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

// Option configures Open
type Option func(*options)

type options struct {
	logger   *slog.Logger
	embedder embedder.Embedder
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEmbedder uses emb instead of the configured provider
func WithEmbedder(emb embedder.Embedder) Option {
	return func(o *options) { o.embedder = emb }
}

// Workspace holds one embedder, cache, index and ranking engine
type Workspace struct {
	Config   *config.Config
	Embedder embedder.Embedder
	Indexer  *indexer.Service
	Facade   *relevance.Facade

	chunker chunker.Chunker
	parser  *parser.Parser
	store   storage.Store
	logger  *slog.Logger
}

// Open builds a workspace from cfg and loads the persisted embedding cache
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Workspace, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	chunk, err := chunker.New(cfg.Chunker.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	emb := o.embedder
	if emb == nil {
		emb, err = embedder.New(cfg.Embedder.Config())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	store := cfg.Cache.NewStore()
	var cache *embedcache.Cache
	if store == nil {
		cache = embedcache.New(nil, embedcache.WithLogger(o.logger))
	} else {
		cache, err = embedcache.Open(ctx, cfg.Cache.Dir, store, embedcache.WithLogger(o.logger))
		if err != nil {
			_ = emb.Close()
			return nil, err
		}
	}

	idx := index.New()
	svc := indexer.New(idx, cache, &indexer.Config{Logger: o.logger})
	facade := relevance.New(idx, emb,
		relevance.WithSearchConfig(cfg.Search.Config()),
		relevance.WithEngine(searcher.NewEngine(0)),
		relevance.WithLogger(o.logger),
	)

	o.logger.Debug("workspace opened",
		"provider", emb.Provider(),
		"model", emb.Model(),
		"chunker", chunk.CacheKey(),
		"cache_entries", cache.Len())

	return &Workspace{
		Config:   cfg,
		Embedder: emb,
		Indexer:  svc,
		Facade:   facade,
		chunker:  chunk,
		parser:   parser.New(),
		store:    store,
		logger:   o.logger,
	}, nil
}

// Corpus validates root and describes it with the configured filters
func (w *Workspace) Corpus(root string) (indexer.DirCorpus, error) {
	if err := ValidateRoot(root); err != nil {
		return indexer.DirCorpus{}, err
	}
	return indexer.DirCorpus{
		Root:          root,
		Extensions:    w.Config.Indexer.Extensions,
		IncludeTests:  w.Config.Indexer.IncludeTests,
		IncludeVendor: w.Config.Indexer.IncludeVendor,
	}, nil
}

// BuildOptions returns the pipeline options for the configured components
func (w *Workspace) BuildOptions() indexer.BuildOptions {
	opts := indexer.BuildOptions{
		Embedder:  w.Embedder,
		Chunker:   w.chunker,
		BatchSize: w.Config.Indexer.BatchSize,
		Workers:   w.Config.Indexer.Workers,
	}
	if w.Config.Indexer.Skeleton {
		opts.Extractor = w.parser.Extract
	}
	return opts
}

// Build indexes root and waits for the run to finish
func (w *Workspace) Build(ctx context.Context, root string) (*indexer.Statistics, error) {
	corpus, err := w.Corpus(root)
	if err != nil {
		return nil, err
	}
	return w.Indexer.Build(ctx, corpus, w.BuildOptions())
}

// Close stops any running build and releases the store and the provider. It
// waits up to the indexer's default grace period for the build to stop.
func (w *Workspace) Close() error {
	if w.Indexer.Cancel() {
		ctx, cancel := context.WithTimeout(context.Background(), indexer.DefaultGracePeriod)
		if _, err := w.Indexer.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn("closing while a build is still running")
		}
		cancel()
	}

	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	errs = append(errs, w.Embedder.Close())
	return errors.Join(errs...)
}

// ValidateRoot checks that root is an absolute, readable directory
func ValidateRoot(root string) error {
	if root == "" {
		return ErrRootRequired
	}
	if !filepath.IsAbs(root) {
		return ErrRootNotAbsolute
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return ErrRootNotFound
	}
	if err != nil {
		return ErrRootNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(root)
	if err != nil {
		return ErrRootNotReadable
	}
	_ = f.Close()

	return nil
}
