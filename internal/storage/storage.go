package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCorrupt is returned by Load when persisted data cannot be decoded
	ErrCorrupt = errors.New("cache store corrupt")
	// ErrClosed is returned when a closed store is used
	ErrClosed = errors.New("cache store closed")
)

// Snapshot is a point-in-time copy of the embedding cache, keyed by cache key
type Snapshot = map[string][]float32

// Store persists embedding cache snapshots. Save replaces the stored
// contents with the snapshot; Load returns everything stored.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// Meta describes the last successful save
type Meta struct {
	Entries int
	SavedAt time.Time
}
