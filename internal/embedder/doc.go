// Package embedder generates vector embeddings for text chunks using various providers.
//
// The embedder supports multiple embedding providers (Jina AI, OpenAI, Ollama, and an
// offline local provider) and provides batching, caching, throttling, and retry for
// production use.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "func ParseFile(path string) error",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// The indexing pipeline embeds cache misses in batches:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//	for i, embedding := range resp.Embeddings {
//	    // embedding i belongs to texts[i]
//	}
//
// Every provider returns embeddings in request order. Remote providers reorder the
// server's response by its index field before returning.
//
// # Provider Selection
//
// NewFromEnv selects a provider from the environment:
//
//  1. If CTXRANK_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → fallback to local provider (offline mode)
//
// OLLAMA_BASE_URL points the Ollama provider at a non-default server. New builds a
// provider from an explicit Config instead.
//
// # Provider Comparison
//
// Jina AI (recommended for code): 1024 dimensions, hosted, API key required.
//
// OpenAI: 1536 dimensions, hosted, API key required.
//
// Ollama: 768 dimensions with nomic-embed-text, self-hosted, no key.
//
// Local: feature-hashed bag of words, 384 dimensions by default. Deterministic,
// offline, and good enough for tests and small corpora.
//
// # Caching
//
// A Memo is an in-memory LRU of vectors keyed by MemoKey(model, text). New
// attaches one when Config.CacheSize is positive, so a repeated query prompt
// is embedded once. This is separate from the durable embedding cache in
// internal/embedcache, which the indexing pipeline consults before calling a
// provider at all.
//
// # Error Handling
//
// Remote calls are throttled with a token-bucket limiter and retried with exponential
// backoff. Client errors other than 408 and 429 are not retried. A
// Retry-After header stretches the next delay up to MaxDelay. Every failure
// wraps ErrProviderFailed, and non-200 answers also unwrap to *StatusError:
//
//	_, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // the batch is dropped for this run
//	}
package embedder
