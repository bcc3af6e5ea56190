// Package storage provides durable backends for the embedding cache.
//
// Two stores implement the same Load/Save contract over a Snapshot (cache key to
// vector):
//   - SQLiteStore: a SQLite database with versioned migrations
//   - FileStore: a single JSON document, written atomically via rename
//
// Save always replaces the stored contents with the snapshot it is given. Load
// returns everything stored, or an error wrapping ErrCorrupt when the data cannot
// be decoded; callers treat that as an empty cache.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations (semantic versions)
//   - embedding_cache: cache_key, vector blob (little-endian float32), dimension
//   - cache_meta: entry count and time of the last save
//
// # Basic Usage
//
//	store := storage.NewSQLiteStore(filepath.Join(cacheDir, "embeddings.db"))
//	defer store.Close()
//
//	snapshot, err := store.Load(ctx)
//	if errors.Is(err, storage.ErrCorrupt) {
//	    snapshot = storage.Snapshot{}
//	}
//
//	if err := store.Save(ctx, snapshot); err != nil {
//	    return err
//	}
//
// The database is opened lazily on first use, so a store can be created before
// its directory exists.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite, a pure Go driver that needs no C
// toolchain:
//
//	CGO_ENABLED=0 go build ./...
//
// Building with the cgosqlite tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags cgosqlite ./...
//
// # Migrations
//
// Migrations are ordered by semantic version and applied on open. Each records its
// version in schema_version; re-running is a no-op. RollbackMigration undoes the
// most recent one.
package storage
