package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dshills/ctxrank/internal/vector"
)

const (
	metaEntries = "entries"
	metaSavedAt = "saved_at"

	// CorruptSuffix is appended to a database file that could not be read
	CorruptSuffix = ".corrupt"
)

// SQLiteStore persists the embedding cache in a SQLite database. The database
// is opened lazily on first use so the store can be constructed before its
// directory exists.
type SQLiteStore struct {
	path string

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewSQLiteStore creates a store backed by the database at path. Use
// ":memory:" for a throwaway in-process database.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

const (
	memoryPath = ":memory:"

	// busyTimeoutMS is how long a writer waits on a lock held by another
	// process sharing the cache directory
	busyTimeoutMS = 5000
)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn(dbPath))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer; also keeps :memory: on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// conn returns the open database, opening and migrating it on first use
func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := openDatabase(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s.db = db
	return db, nil
}

// Load returns every cached vector. Rows whose blob does not match the
// recorded dimension make the whole store ErrCorrupt.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, s.corrupt(err)
	}

	rows, err := db.QueryContext(ctx, "SELECT cache_key, vector, dimension FROM embedding_cache")
	if err != nil {
		return nil, s.corrupt(fmt.Errorf("query: %w", err))
	}
	defer func() {
		_ = rows.Close()
	}()

	snapshot := make(Snapshot)
	for rows.Next() {
		var (
			key       string
			blob      []byte
			dimension int
		)
		if err := rows.Scan(&key, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrCorrupt, err)
		}
		if len(blob) != dimension*4 {
			return nil, fmt.Errorf("%w: entry %s has %d bytes for dimension %d", ErrCorrupt, key, len(blob), dimension)
		}
		snapshot[key] = vector.Deserialize(blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return snapshot, nil
}

// corrupt wraps a Load failure in ErrCorrupt. When SQLite reports the file is
// not a usable database, the file is moved aside to path+CorruptSuffix so the
// next Save starts a fresh database instead of failing on the same bytes.
func (s *SQLiteStore) corrupt(cause error) error {
	if !isDamagedFile(cause) || s.path == memoryPath {
		return fmt.Errorf("%w: %w", ErrCorrupt, cause)
	}
	if err := s.quarantine(); err != nil {
		return fmt.Errorf("%w: %w (moving it aside failed: %v)", ErrCorrupt, cause, err)
	}
	return fmt.Errorf("%w: moved to %s: %w", ErrCorrupt, s.path+CorruptSuffix, cause)
}

func (s *SQLiteStore) quarantine() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	if err := os.Rename(s.path, s.path+CorruptSuffix); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// isDamagedFile matches SQLITE_NOTADB and SQLITE_CORRUPT as reported by
// either driver
func isDamagedFile(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

// Save replaces the stored cache with snapshot in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, snapshot Snapshot) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := writeSnapshot(ctx, tx, snapshot); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, snapshot Snapshot) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM embedding_cache"); err != nil {
		return fmt.Errorf("clear cache table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embedding_cache (cache_key, vector, dimension, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	now := time.Now().UTC()
	for key, v := range snapshot {
		if _, err := stmt.ExecContext(ctx, key, vector.Serialize(v), len(v), now); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}

	return setMeta(ctx, tx, map[string]string{
		metaEntries: strconv.Itoa(len(snapshot)),
		metaSavedAt: now.Format(time.RFC3339Nano),
	})
}

func setMeta(ctx context.Context, q querier, values map[string]string) error {
	for name, value := range values {
		_, err := q.ExecContext(ctx, `
			INSERT INTO cache_meta (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value
		`, name, value)
		if err != nil {
			return fmt.Errorf("set meta %s: %w", name, err)
		}
	}
	return nil
}

// Meta reports what the last Save wrote. A store that was never saved
// returns a zero Meta.
func (s *SQLiteStore) Meta(ctx context.Context) (Meta, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return Meta{}, err
	}
	return readMeta(ctx, db)
}

func readMeta(ctx context.Context, q querier) (Meta, error) {
	var meta Meta

	var entries string
	err := q.QueryRowContext(ctx, "SELECT value FROM cache_meta WHERE name = ?", metaEntries).Scan(&entries)
	if errors.Is(err, sql.ErrNoRows) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("read meta: %w", err)
	}
	if meta.Entries, err = strconv.Atoi(entries); err != nil {
		return meta, fmt.Errorf("%w: entries %q", ErrCorrupt, entries)
	}

	var savedAt string
	if err := q.QueryRowContext(ctx, "SELECT value FROM cache_meta WHERE name = ?", metaSavedAt).Scan(&savedAt); err != nil {
		return meta, fmt.Errorf("read meta: %w", err)
	}
	if meta.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return meta, fmt.Errorf("%w: saved_at %q", ErrCorrupt, savedAt)
	}

	return meta, nil
}

// Close closes the database connection if it was opened
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
