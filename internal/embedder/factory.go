package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Dimension         int
	CacheSize         int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. CTXRANK_EMBEDDING_PROVIDER (jina, openai, ollama, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	provider := DetectProvider()

	cfg := Config{
		Provider:          provider,
		CacheSize:         DefaultCacheSize,
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
	switch provider {
	case ProviderJina:
		cfg.APIKey = os.Getenv(EnvJinaAPIKey)
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv(EnvOpenAIAPIKey)
	case ProviderOllama:
		cfg.BaseURL = os.Getenv(EnvOllamaBaseURL)
	}

	return New(cfg)
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var memo *Memo
	if cfg.CacheSize > 0 {
		memo = NewMemo(cfg.CacheSize)
	}

	pc := ProviderConfig{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Dimension:         cfg.Dimension,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Memo:              memo,
	}

	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderJina:
		emb, err = asEmbedder(NewJinaProvider(pc))
	case ProviderOpenAI:
		emb, err = asEmbedder(NewOpenAIProvider(pc))
	case ProviderOllama:
		emb, err = asEmbedder(NewOllamaProvider(pc))
	case ProviderLocal, "":
		emb, err = asEmbedder(NewLocalProvider(cfg.Dimension, memo))
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return emb, nil
}

// asEmbedder keeps a failed constructor from producing a non-nil interface
// holding a nil pointer.
func asEmbedder(p Embedder, err error) (Embedder, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
