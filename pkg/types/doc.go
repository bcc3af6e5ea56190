// Package types provides shared type definitions for ctxrank.
//
// # Documents and Chunks
//
// A Document is identified by a stable, path-like ID. The indexing pipeline
// splits its text into Chunks and stores one vector per chunk under an index
// key built from the document ID and the chunk ordinal:
//
//	key := types.IndexKey("internal/foo/bar.go", 3)
//	id := types.DocumentID(key) // "internal/foo/bar.go"
//
// The separator is the ASCII unit separator (0x1F), which never appears in
// practical paths. Document IDs containing it are rejected by Chunk.Validate.
//
// # Relevance Results
//
// RelevanceResult is the file-level answer of the ranking engine: the file
// path, the summed score of its best chunks, and those chunks' texts as a
// preview, best first.
package types
