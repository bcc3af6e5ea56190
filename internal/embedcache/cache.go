// Package embedcache is the content-addressed embedding cache: a durable
// mapping from a deterministic key to a previously computed vector. It is
// loaded once at startup, updated concurrently during index builds, and
// persisted as a whole snapshot after each successful build.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// identitySeparator joins the parts of a cache identity
const identitySeparator = "\x1f"

// ErrCacheDir is returned by Open when the cache directory cannot be created
var ErrCacheDir = errors.New("cannot create cache directory")

// Store is the durable backend behind a Cache
type Store interface {
	Load(ctx context.Context) (map[string][]float32, error)
	Save(ctx context.Context, snapshot map[string][]float32) error
}

// KeyFor returns the lowercase hex SHA-256 of identity, a zero byte, and text.
// Identical inputs always yield the same key; changing either changes it.
func KeyFor(identity, text string) string {
	h := sha256.New()
	h.Write([]byte(identity))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Identity builds the identity string the indexing pipeline hashes with each
// chunk: the document ID, the chunker's cache key and the embedding model.
// Renaming a document therefore invalidates its cached chunks.
func Identity(documentID, chunkerKey, model string) string {
	return strings.Join([]string{documentID, chunkerKey, model}, identitySeparator)
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger used for load warnings
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache maps cache keys to vectors. It is safe for concurrent use; readers
// and writers never block each other.
type Cache struct {
	entries sync.Map // string -> []float32
	store   Store
	logger  *slog.Logger

	persistMu sync.Mutex
}

// New creates an empty cache backed by store. A nil store makes Persist a no-op.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open creates dir if needed and eagerly loads store into a new cache. Failing
// to create the directory is an error. A store that cannot be read is logged
// and the cache starts empty.
func Open(ctx context.Context, dir string, store Store, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCacheDir, dir, err)
	}

	c := New(store, opts...)
	if store == nil {
		return c, nil
	}

	snapshot, err := store.Load(ctx)
	if err != nil {
		c.logger.Warn("embedding cache unreadable, starting empty", "dir", dir, "error", err)
		return c, nil
	}

	for key, v := range snapshot {
		c.entries.Store(key, v)
	}
	c.logger.Debug("embedding cache loaded", "dir", dir, "entries", len(snapshot))

	return c, nil
}

// TryGet returns the vector stored under key. The returned slice is shared
// and must not be modified.
func (c *Cache) TryGet(key string) ([]float32, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.([]float32), true
}

// Set stores v under key, replacing any previous value
func (c *Cache) Set(key string, v []float32) {
	c.entries.Store(key, v)
}

// Len counts the cached vectors
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every in-memory entry. The store is untouched until the next Persist.
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Snapshot copies the current contents into a plain map. Writers running
// concurrently may or may not be reflected.
func (c *Cache) Snapshot() map[string][]float32 {
	snapshot := make(map[string][]float32)
	c.entries.Range(func(k, v any) bool {
		snapshot[k.(string)] = v.([]float32)
		return true
	})
	return snapshot
}

// Persist hands a snapshot of the whole cache to the store. Concurrent calls
// are serialised; readers and writers are not blocked.
func (c *Cache) Persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	snapshot := c.Snapshot()
	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist embedding cache: %w", err)
	}
	return nil
}
