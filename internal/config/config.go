// Package config loads ctxrank settings from a TOML file and the environment.
//
// Settings are resolved in order: Default, then the file, then environment
// overrides, then Validate. A missing file at the default location is not an
// error; a missing file given explicitly is.
//
//	[cache]
//	dir = "~/.ctxrank/cache"
//	backend = "sqlite"
//
//	[embedder]
//	provider = "ollama"
//	base_url = "http://localhost:11434"
//
//	[chunker]
//	strategy = "fixed"
//	size = 1000
//	overlap = 100
//
//	[search]
//	lambda = 0.7
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ctxrank/internal/chunker"
	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/searcher"
	"github.com/dshills/ctxrank/internal/storage"
)

// Environment overrides
const (
	EnvConfig   = "CTXRANK_CONFIG"
	EnvCacheDir = "CTXRANK_CACHE_DIR"
)

// Cache backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendNone   = "none"
)

const (
	dirName  = ".ctxrank"
	fileName = "config.toml"
	dbName   = "embeddings.db"
	jsonName = "embeddings.json"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete ctxrank configuration
type Config struct {
	Cache    Cache    `toml:"cache"`
	Embedder Embedder `toml:"embedder"`
	Chunker  Chunker  `toml:"chunker"`
	Indexer  Indexer  `toml:"indexer"`
	Search   Search   `toml:"search"`
}

// Cache locates the persisted embedding cache
type Cache struct {
	Dir     string `toml:"dir"`
	Backend string `toml:"backend"`
}

// Embedder selects the embedding provider. An empty provider is detected
// from the environment.
type Embedder struct {
	Provider          string  `toml:"provider"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Dimension         int     `toml:"dimension"`
	CacheSize         int     `toml:"cache_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Chunker selects the chunking strategy
type Chunker struct {
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
}

// Indexer controls corpus discovery and the build pipeline
type Indexer struct {
	Extensions    []string `toml:"extensions"`
	IncludeTests  bool     `toml:"include_tests"`
	IncludeVendor bool     `toml:"include_vendor"`
	// Skeleton indexes Go files by their declarations only
	Skeleton   bool `toml:"skeleton"`
	Workers    int  `toml:"workers"`
	BatchSize  int  `toml:"batch_size"`
	DebounceMS int  `toml:"debounce_ms"`
}

// Search weights and bounds ranking
type Search struct {
	Candidates    int     `toml:"candidates"`
	Rerank        int     `toml:"rerank"`
	TopKPerFile   int     `toml:"top_k_per_file"`
	VectorWeight  float64 `toml:"vector_weight"`
	NameWeight    float64 `toml:"name_weight"`
	KeywordWeight float64 `toml:"keyword_weight"`
	RecencyWeight float64 `toml:"recency_weight"`
	Lambda        float64 `toml:"lambda"`
	MinScore      float64 `toml:"min_score"`
}

// Default returns the built-in configuration
func Default() *Config {
	sc := searcher.DefaultConfig()
	cc := chunker.DefaultConfig()

	return &Config{
		Cache: Cache{
			Dir:     filepath.Join(homeDir(), dirName, "cache"),
			Backend: BackendSQLite,
		},
		Embedder: Embedder{
			CacheSize:         embedder.DefaultCacheSize,
			RequestsPerSecond: embedder.DefaultRequestsPerSecond,
			TimeoutSeconds:    int(embedder.DefaultTimeout / time.Second),
		},
		Chunker: Chunker{
			Strategy: cc.Strategy,
			Size:     cc.Size,
			Overlap:  cc.Overlap,
		},
		Indexer: Indexer{
			Skeleton:   true,
			BatchSize:  embedder.DefaultBatchSize,
			DebounceMS: 500,
		},
		Search: Search{
			Candidates:    sc.Candidates,
			Rerank:        sc.Rerank,
			TopKPerFile:   sc.TopKPerFile,
			VectorWeight:  sc.VectorWeight,
			NameWeight:    sc.NameWeight,
			KeywordWeight: sc.KeywordWeight,
			RecencyWeight: sc.RecencyWeight,
			Lambda:        sc.Lambda,
			MinScore:      sc.MinScore,
		},
	}
}

// DefaultPath is where Load looks when no path is given: $CTXRANK_CONFIG,
// else ~/.ctxrank/config.toml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(homeDir(), dirName, fileName)
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return err
	}
	return nil
}

// ApplyEnv overrides file settings with environment variables. Provider API
// keys only fill an empty key for the matching provider.
func (c *Config) ApplyEnv() {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		c.Cache.Dir = dir
	}
	if p := os.Getenv(embedder.EnvProvider); p != "" {
		c.Embedder.Provider = p
	}
	c.Embedder.Provider = strings.ToLower(strings.TrimSpace(c.Embedder.Provider))
	if c.Embedder.Provider == "" {
		c.Embedder.Provider = embedder.DetectProvider()
	}

	c.applyProviderEnv()

	c.Cache.Dir = expandHome(c.Cache.Dir)
}

// UseProvider switches the embedding provider, dropping any configured API
// key in favour of the new provider's environment variable.
func (c *Config) UseProvider(name string) {
	c.Embedder.Provider = strings.ToLower(strings.TrimSpace(name))
	c.Embedder.APIKey = ""
	c.applyProviderEnv()
}

func (c *Config) applyProviderEnv() {
	switch c.Embedder.Provider {
	case embedder.ProviderJina:
		c.Embedder.APIKey = firstNonEmpty(c.Embedder.APIKey, os.Getenv(embedder.EnvJinaAPIKey))
	case embedder.ProviderOpenAI:
		c.Embedder.APIKey = firstNonEmpty(c.Embedder.APIKey, os.Getenv(embedder.EnvOpenAIAPIKey))
	case embedder.ProviderOllama:
		if u := os.Getenv(embedder.EnvOllamaBaseURL); u != "" {
			c.Embedder.BaseURL = u
		}
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	if c.Cache.Dir == "" && c.Cache.Backend != BackendNone {
		return fmt.Errorf("%w: cache.dir is required", ErrInvalid)
	}
	if !slices.Contains([]string{BackendSQLite, BackendFile, BackendNone}, c.Cache.Backend) {
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalid, c.Cache.Backend)
	}

	switch c.Embedder.Provider {
	case embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderOllama, embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedder.provider %q", ErrInvalid, c.Embedder.Provider)
	}
	if c.Embedder.Dimension < 0 || c.Embedder.CacheSize < 0 || c.Embedder.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: embedder sizes must not be negative", ErrInvalid)
	}

	if _, err := chunker.New(c.Chunker.Config()); err != nil {
		return fmt.Errorf("%w: chunker: %w", ErrInvalid, err)
	}

	if c.Indexer.Workers < 0 || c.Indexer.BatchSize < 0 || c.Indexer.DebounceMS < 0 {
		return fmt.Errorf("%w: indexer sizes must not be negative", ErrInvalid)
	}

	if err := c.Search.Config().Validate(); err != nil {
		return fmt.Errorf("%w: search: %w", ErrInvalid, err)
	}
	return nil
}

// Config converts the section for embedder.New
func (e Embedder) Config() embedder.Config {
	return embedder.Config{
		Provider:          e.Provider,
		APIKey:            e.APIKey,
		BaseURL:           e.BaseURL,
		Model:             e.Model,
		Dimension:         e.Dimension,
		CacheSize:         e.CacheSize,
		RequestsPerSecond: e.RequestsPerSecond,
		Timeout:           time.Duration(e.TimeoutSeconds) * time.Second,
	}
}

// Config converts the section for chunker.New
func (c Chunker) Config() chunker.Config {
	return chunker.Config{Strategy: c.Strategy, Size: c.Size, Overlap: c.Overlap}
}

// Config converts the section for the ranking engine
func (s Search) Config() searcher.Config {
	return searcher.Config{
		Candidates:    s.Candidates,
		Rerank:        s.Rerank,
		TopKPerFile:   s.TopKPerFile,
		VectorWeight:  s.VectorWeight,
		NameWeight:    s.NameWeight,
		KeywordWeight: s.KeywordWeight,
		RecencyWeight: s.RecencyWeight,
		Lambda:        s.Lambda,
		MinScore:      s.MinScore,
	}
}

// Debounce is the watch debounce interval
func (i Indexer) Debounce() time.Duration {
	return time.Duration(i.DebounceMS) * time.Millisecond
}

// NewStore opens the configured cache store. BackendNone gives a nil store,
// which keeps the cache in memory only.
func (c Cache) NewStore() storage.Store {
	switch c.Backend {
	case BackendFile:
		return storage.NewFileStore(filepath.Join(c.Dir, jsonName))
	case BackendNone:
		return nil
	default:
		return storage.NewSQLiteStore(filepath.Join(c.Dir, dbName))
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
