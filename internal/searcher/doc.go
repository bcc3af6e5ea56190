// Package searcher ranks index entries against a query by fusing vector
// similarity with lexical signals, then diversifies and groups the result.
//
// # Queries
//
// A MultiQuery holds one or more unit vectors. An entry's vector score is its
// best cosine similarity against any of them, so a chunk close to either the
// prompt or one of the selected files counts as a strong match:
//
//	prompt, _ := searcher.FromPrompt(ctx, emb, "where is the config parsed")
//	centroid := searcher.Centroid(svc.VectorsForDocument("internal/config/config.go"))
//	q, err := searcher.NewMultiQuery(prompt, centroid)
//
// # Ranking
//
//	results, err := engine.Rank(ctx, searcher.RankRequest{
//	    Query:   q,
//	    Text:    "where is the config parsed",
//	    Entries: idx.Snapshot(),
//	    Config:  searcher.DefaultConfig(),
//	    Exclude: []string{"internal/config/config.go"},
//	})
//
// Rank runs in stages:
//
//  1. Keywords: the query text is split at separators and camelCase
//     boundaries, lowercased, and tokens of one rune are dropped.
//  2. Scoring, in parallel: excluded files (or files outside a non-empty
//     Include) score -1. Otherwise
//     VectorWeight*vec + NameWeight*name + KeywordWeight*keyword, where name
//     and keyword are the fractions of query tokens found in the file path and
//     in the chunk text.
//  3. Pool: scores at or below MinScore are dropped; the rest are sorted (ties
//     keep index key order) and cut to Candidates.
//  4. MMR: the top candidate is picked first; each further pick maximises
//     Lambda*score - (1-Lambda)*similarity to what is already picked, until
//     Rerank chunks are chosen.
//  5. Files: each file scores the sum of its best TopKPerFile chunks, with
//     those chunks' texts as a preview. Files are sorted best first, ties by
//     path. No limit is applied.
//
// RecencyWeight is part of Config but has no effect: index entries carry no
// timestamps.
//
// # Presets
//
// DefaultConfig is the hybrid ranking. CosineConfig reduces it to plain
// cosine similarity: vector weight 1, other weights 0, Lambda 1 and Rerank
// equal to Candidates, so MMR keeps relevance order.
//
// # Caching
//
// The Engine keeps an LRU of chunk token sets so repeated queries over the
// same index do not re-tokenise every chunk.
package searcher
