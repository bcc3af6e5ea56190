// Package chunker divides document text into the pieces that are embedded and indexed.
//
// Four strategies are available:
//   - Null: yields nothing, for content types that should not be indexed
//   - FixedSize: sliding rune windows with a fixed overlap
//   - Bounded: sliding windows over tokenizer units (WordTokenizer by default)
//   - Declarations: one chunk per top-level Go declaration
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.Config{Strategy: "fixed", Size: 1000, Overlap: 100})
//	if err != nil {
//	    return err
//	}
//	for piece := range c.Chunk(text) {
//	    // embed piece
//	}
//
// # Cache Keys
//
// Every chunker reports a CacheKey describing its configuration, for example
// "fixed:1000:100". The indexing pipeline folds it into the identity of each
// chunk's embedding cache entry, so resizing windows re-embeds instead of
// reusing vectors computed for different chunk boundaries.
package chunker
