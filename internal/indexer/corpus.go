package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dshills/ctxrank/pkg/types"
)

// ErrNotText is returned by ReadFile for content that is not valid UTF-8
var ErrNotText = errors.New("document is not valid UTF-8 text")

// Source names one document of a corpus: its stable ID and where to read it from
type Source struct {
	ID       string
	Location string
}

// Corpus enumerates the documents to index. Name identifies the corpus; the
// index is cleared when a build starts on a corpus with a different name.
type Corpus interface {
	Name() string
	Sources(ctx context.Context) ([]Source, error)
}

// Loader reads the content of a source
type Loader func(ctx context.Context, src Source) (string, error)

// ReadFile loads src.Location from disk
func ReadFile(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(src.Location)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, src.ID)
	}
	return string(data), nil
}

// DirCorpus is every matching file below Root. IDs are slash-separated paths
// relative to Root.
type DirCorpus struct {
	Root string

	// Extensions restricts the walk to these suffixes (".go", ".md"). Empty
	// means every file.
	Extensions []string

	IncludeTests  bool // index _test.go files
	IncludeVendor bool // descend into vendor directories
}

// Name implements Corpus
func (d DirCorpus) Name() string {
	abs, err := filepath.Abs(d.Root)
	if err != nil {
		return d.Root
	}
	return abs
}

// Sources walks Root in lexical order. Hidden directories are skipped, and so
// is vendor unless IncludeVendor is set.
func (d DirCorpus) Sources(ctx context.Context) ([]Source, error) {
	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", d.Root)
	}

	var sources []Source
	err = filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			if path == d.Root {
				return nil
			}
			if d.skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		if !d.IncludeTests && strings.HasSuffix(name, "_test.go") {
			return nil
		}
		if !d.matches(name) {
			return nil
		}

		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		if strings.Contains(id, types.IndexKeySeparator) {
			return nil
		}

		sources = append(sources, Source{ID: id, Location: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.Root, err)
	}

	return sources, nil
}

func (d DirCorpus) matches(name string) bool {
	if len(d.Extensions) == 0 {
		return true
	}
	return slices.ContainsFunc(d.Extensions, func(ext string) bool {
		return strings.HasSuffix(name, ext)
	})
}

// MemoryCorpus is a fixed set of in-memory documents. It loads its own
// content, so builds over it need no Loader.
type MemoryCorpus struct {
	ID        string
	Documents []types.Document
}

// Name implements Corpus
func (m MemoryCorpus) Name() string { return m.ID }

// Sources implements Corpus
func (m MemoryCorpus) Sources(context.Context) ([]Source, error) {
	sources := make([]Source, len(m.Documents))
	for i, doc := range m.Documents {
		sources[i] = Source{ID: doc.ID, Location: doc.ID}
	}
	return sources, nil
}

// Load returns the content of the document named by src
func (m MemoryCorpus) Load(_ context.Context, src Source) (string, error) {
	for _, doc := range m.Documents {
		if doc.ID == src.ID {
			return doc.Content, nil
		}
	}
	return "", fmt.Errorf("%w: %s", fs.ErrNotExist, src.ID)
}
