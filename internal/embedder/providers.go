package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	// Default endpoints
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIURL = "https://api.openai.com/v1/embeddings"
	DefaultOllamaURL = "http://localhost:11434"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 16
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// DefaultCacheSize is the number of single-text embeddings kept in memory
	DefaultCacheSize = 10000

	// DefaultRequestsPerSecond throttles remote providers
	DefaultRequestsPerSecond = 5.0

	// DefaultTimeout bounds a single HTTP call
	DefaultTimeout = 30 * time.Second
)

// Environment variables read by NewFromEnv
const (
	EnvProvider      = "CTXRANK_EMBEDDING_PROVIDER"
	EnvJinaAPIKey    = "JINA_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOllamaBaseURL = "OLLAMA_BASE_URL"
)

// ProviderConfig configures a remote provider. Zero values select defaults.
type ProviderConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimension         int
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables throttling
	Retry             RetryConfig
	Memo              *Memo // nil disables memoisation
}

type wireFormat int

const (
	formatOpenAI wireFormat = iota // also spoken by Jina
	formatOllama
)

// remoteProvider is the HTTP core shared by the Jina, OpenAI and Ollama providers
type remoteProvider struct {
	name       string
	format     wireFormat
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	memo       *Memo
}

func newRemoteProvider(name string, format wireFormat, endpoint, model string, dimension int, cfg ProviderConfig) *remoteProvider {
	if cfg.BaseURL != "" {
		endpoint = cfg.BaseURL
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	if cfg.Dimension > 0 {
		dimension = cfg.Dimension
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retry := cfg.Retry
	if retry.MaxRetries <= 0 {
		retry = DefaultRetryConfig()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &remoteProvider{
		name:      name,
		format:    format,
		endpoint:  endpoint,
		apiKey:    cfg.APIKey,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		retry:   retry,
		memo:    cfg.Memo,
	}
}

func (p *remoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := checkText(req.Text); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	if emb, _, ok := p.memo.lookup(p.name, model, req.Text); ok {
		return emb, nil
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (p *remoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := checkBatch(req.Texts); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	embeddings, err := retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, p.name, err)
	}

	if len(embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(embeddings), len(req.Texts))
	}

	for i, emb := range embeddings {
		emb.Hash = MemoKey(model, req.Texts[i])
		p.memo.store(emb)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *remoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := p.endpoint
	if p.format == formatOllama {
		url = strings.TrimRight(p.endpoint, "/") + "/api/embed"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, newStatusError(resp, bodyBytes)
	}

	var vectors [][]float32
	var respModel string

	switch p.format {
	case formatOllama:
		var apiResp struct {
			Model      string      `json:"model"`
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		vectors, respModel = apiResp.Embeddings, apiResp.Model

	default:
		var apiResp struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			} `json:"data"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		// Servers may answer out of order; the index field is authoritative
		sort.SliceStable(apiResp.Data, func(i, j int) bool {
			return apiResp.Data[i].Index < apiResp.Data[j].Index
		})
		vectors = make([][]float32, len(apiResp.Data))
		for i, data := range apiResp.Data {
			vectors[i] = data.Embedding
		}
		respModel = apiResp.Model
	}

	if respModel == "" {
		respModel = model
	}

	embeddings := make([]*Embedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = &Embedding{
			Vector:    v,
			Dimension: len(v),
			Provider:  p.name,
			Model:     respModel,
		}
	}

	return embeddings, nil
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

func (p *remoteProvider) Provider() string {
	return p.name
}

func (p *remoteProvider) Model() string {
	return p.model
}

func (p *remoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	*remoteProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(cfg ProviderConfig) (*JinaProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	return &JinaProvider{
		remoteProvider: newRemoteProvider(ProviderJina, formatOpenAI, DefaultJinaURL, DefaultJinaModel, JinaDimension, cfg),
	}, nil
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	*remoteProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return &OpenAIProvider{
		remoteProvider: newRemoteProvider(ProviderOpenAI, formatOpenAI, DefaultOpenAIURL, DefaultOpenAIModel, OpenAIDimension, cfg),
	}, nil
}

// OllamaProvider implements Embedder against a local Ollama server's batch
// /api/embed endpoint. No API key is needed.
type OllamaProvider struct {
	*remoteProvider
}

// NewOllamaProvider creates a new Ollama embedder
func NewOllamaProvider(cfg ProviderConfig) (*OllamaProvider, error) {
	return &OllamaProvider{
		remoteProvider: newRemoteProvider(ProviderOllama, formatOllama, DefaultOllamaURL, DefaultOllamaModel, OllamaDimension, cfg),
	}, nil
}
