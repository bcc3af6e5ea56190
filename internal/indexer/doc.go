// Package indexer builds the in-memory vector index from a corpus of documents.
//
// A Service owns an index.Index and an embedcache.Cache. Each build walks the
// corpus, chunks every document, reuses cached vectors where it can and sends
// the rest to the embedding provider in batches.
//
// # Basic Usage
//
//	svc := indexer.New(index.New(), cache, &indexer.Config{Logger: logger})
//
//	stats, err := svc.Build(ctx, indexer.DirCorpus{Root: "/path/to/project"}, indexer.BuildOptions{
//	    Embedder:  emb,
//	    Chunker:   chunker.FixedSize{Size: 1000, Overlap: 100},
//	    Extractor: parser.New().Extract,
//	})
//
//	fmt.Printf("Indexed %d documents (%d cached chunks) in %v\n",
//	    stats.DocumentsIndexed, stats.CacheHits, stats.Duration)
//
// # Build Pipeline
//
//  1. Discovery: documents are loaded, extracted and chunked in parallel
//     (errgroup, Workers at a time). Each chunk's cache key hashes the document
//     ID, the chunker's CacheKey, the embedding model and the chunk text. Hits
//     go straight into the index; misses are queued in document order, then
//     ordinal order.
//  2. Embedding: misses are sent in batches of BatchSize (default 16), one
//     GenerateBatch call each. Vectors are L2-normalised and written to both
//     the index and the cache.
//  3. Persisting: when the run was not cancelled and added vectors, the cache
//     is persisted once.
//
// Rebuilding an unchanged corpus makes no provider calls. Changing the chunker
// configuration or the model changes every cache key, so everything is
// re-embedded.
//
// # Runs and Cancellation
//
// One build is in flight at a time. Start launches a build in the background
// and returns its run ID; a build already running is cancelled and given up
// to GracePeriod (default 2s) to stop. Build does the same and waits.
//
//	runID, _ := svc.Start(ctx, corpus, opts)
//	fmt.Println(svc.ProgressText()) // Indexing: 12/40 documents, 30/120 chunks embedded (45 cached)
//	svc.Cancel()
//
// Cancellation is checked before every document and every batch. A cancelled
// build is not an error: it ends with StatusCancelled and leaves whatever it
// already wrote. Every vector in the index and cache stays valid, and the next
// build picks up where it stopped.
//
// Index and cache writes check the run's context under the service lock. A
// superseded run still stuck in a provider call after the grace period drops
// its results instead of writing them into the next run's index.
//
// # Error Handling
//
// Only a corpus that cannot be enumerated fails a build. Everything else is
// logged, counted in Statistics and skipped:
//   - Unreadable documents (including non-UTF-8 files) are skipped
//   - A failed provider batch is dropped for this run; there is no retry here,
//     transport retries belong to the provider
//   - A failed cache persist is logged; the index is still complete
//
// # Watching
//
// Watch rebuilds a DirCorpus when files below its root change, debouncing
// bursts of events into one Start.
package indexer
