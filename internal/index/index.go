// Package index holds the in-memory vector index: one normalised vector and
// its chunk text per index key. It is rebuilt by the indexing pipeline and read
// concurrently by queries.
package index

import (
	"sort"
	"sync"

	"github.com/dshills/ctxrank/pkg/types"
)

// Entry is what the index stores for one chunk
type Entry struct {
	Vector []float32
	Text   string
}

// Index maps index keys to entries. Safe for concurrent use.
type Index struct {
	entries sync.Map // string -> Entry
}

// New creates an empty index
func New() *Index {
	return &Index{}
}

// Set stores e under key, replacing any previous entry
func (idx *Index) Set(key string, e Entry) {
	idx.entries.Store(key, e)
}

// Get returns the entry stored under key
func (idx *Index) Get(key string) (Entry, bool) {
	v, ok := idx.entries.Load(key)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Delete removes the entry stored under key
func (idx *Index) Delete(key string) {
	idx.entries.Delete(key)
}

// Retain removes every entry whose key fails keep and reports how many were removed
func (idx *Index) Retain(keep func(key string) bool) int {
	removed := 0
	idx.entries.Range(func(k, _ any) bool {
		if !keep(k.(string)) {
			idx.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Len counts the indexed chunks
func (idx *Index) Len() int {
	n := 0
	idx.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear removes every entry
func (idx *Index) Clear() {
	idx.entries.Clear()
}

// Snapshot copies the index into a plain map, or returns nil when it is empty.
// Entries added while the copy is taken may or may not be included.
func (idx *Index) Snapshot() map[string]Entry {
	snapshot := make(map[string]Entry)
	idx.entries.Range(func(k, v any) bool {
		snapshot[k.(string)] = v.(Entry)
		return true
	})
	if len(snapshot) == 0 {
		return nil
	}
	return snapshot
}

// Vectors returns the vectors of a snapshot keyed like it
func Vectors(snapshot map[string]Entry) map[string][]float32 {
	out := make(map[string][]float32, len(snapshot))
	for k, e := range snapshot {
		out[k] = e.Vector
	}
	return out
}

// Texts returns the chunk texts of a snapshot keyed like it
func Texts(snapshot map[string]Entry) map[string]string {
	out := make(map[string]string, len(snapshot))
	for k, e := range snapshot {
		out[k] = e.Text
	}
	return out
}

// VectorsForDocument returns the vectors of every chunk of documentID in
// ordinal order, or nil if the document has none.
func (idx *Index) VectorsForDocument(documentID string) [][]float32 {
	type keyed struct {
		ordinal int
		vector  []float32
	}

	var found []keyed
	idx.entries.Range(func(k, v any) bool {
		key := k.(string)
		if types.DocumentID(key) == documentID {
			found = append(found, keyed{ordinal: types.Ordinal(key), vector: v.(Entry).Vector})
		}
		return true
	})
	if len(found) == 0 {
		return nil
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ordinal < found[j].ordinal })

	vectors := make([][]float32, len(found))
	for i, f := range found {
		vectors[i] = f.vector
	}
	return vectors
}

// Documents lists the distinct document IDs present, sorted
func (idx *Index) Documents() []string {
	seen := make(map[string]struct{})
	idx.entries.Range(func(k, _ any) bool {
		seen[types.DocumentID(k.(string))] = struct{}{}
		return true
	})

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
