package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/ctxrank/internal/vector"
)

const fileFormatVersion = 1

// FileStore persists the embedding cache as a single JSON document. Vectors
// are stored as base64 little-endian float32 blobs. Saves write a temporary
// file and rename it into place.
type FileStore struct {
	path string
}

type fileDocument struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Entries map[string]string `json:"entries"`
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the file. A missing file is an empty cache, not an error.
func (f *FileStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrCorrupt, f.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, f.path, err)
	}
	if doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, doc.Version)
	}

	snapshot := make(Snapshot, len(doc.Entries))
	for key, encoded := range doc.Entries {
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(blob)%4 != 0 {
			return nil, fmt.Errorf("%w: entry %s", ErrCorrupt, key)
		}
		snapshot[key] = vector.Deserialize(blob)
	}

	return snapshot, nil
}

// Save writes snapshot atomically
func (f *FileStore) Save(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := fileDocument{
		Version: fileFormatVersion,
		SavedAt: time.Now().UTC(),
		Entries: make(map[string]string, len(snapshot)),
	}
	for key, v := range snapshot {
		doc.Entries[key] = base64.StdEncoding.EncodeToString(vector.Serialize(v))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// Close implements Store
func (f *FileStore) Close() error { return nil }
