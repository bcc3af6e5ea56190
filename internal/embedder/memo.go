package embedder

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memo is an in-process LRU of embeddings keyed by MemoKey. It saves provider
// round trips for repeated query texts; chunk vectors are cached durably by
// the embedcache package instead.
type Memo struct {
	entries *lru.Cache[string, []float32]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewMemo keeps up to size vectors. A non-positive size selects
// DefaultCacheSize.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		panic("embedder: " + err.Error())
	}
	return &Memo{entries: entries}
}

// MemoKey hashes a model name and a text. The same text under another model
// gets another key.
func MemoKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the vector stored under key
func (m *Memo) Get(key string) ([]float32, bool) {
	v, ok := m.entries.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return append([]float32(nil), v...), true
}

// Put stores a copy of v under key
func (m *Memo) Put(key string, v []float32) {
	m.entries.Add(key, append([]float32(nil), v...))
}

func (m *Memo) Len() int {
	return m.entries.Len()
}

// Stats reports lookups since creation
func (m *Memo) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *Memo) Purge() {
	m.entries.Purge()
}

// lookup rebuilds a memoised Embedding for the given provider
func (m *Memo) lookup(provider, model, text string) (*Embedding, string, bool) {
	key := MemoKey(model, text)
	if m == nil {
		return nil, key, false
	}
	v, ok := m.Get(key)
	if !ok {
		return nil, key, false
	}
	return &Embedding{Vector: v, Dimension: len(v), Provider: provider, Model: model, Hash: key}, key, true
}

func (m *Memo) store(emb *Embedding) {
	if m != nil {
		m.Put(emb.Hash, emb.Vector)
	}
}
