package types

import (
	"errors"
	"strconv"
	"strings"
)

// IndexKeySeparator joins a document ID and a chunk ordinal into an index key.
// The ASCII unit separator never appears in practical file paths.
const IndexKeySeparator = "\x1f"

var (
	ErrInvalidDocumentID = errors.New("document ID contains the index key separator")
	ErrEmptyContent      = errors.New("content cannot be empty")
)

// Document is a unit of the corpus: a stable path-like ID and its raw text.
type Document struct {
	ID      string
	Content string
}

// Chunk is a bounded slice of a document's text, the unit that gets embedded.
type Chunk struct {
	DocumentID string
	Ordinal    int
	Text       string
}

// IndexKey returns the key under which the chunk's vector is indexed.
func (c *Chunk) IndexKey() string {
	return IndexKey(c.DocumentID, c.Ordinal)
}

// Validate checks the chunk is addressable and non-empty
func (c *Chunk) Validate() error {
	if c.DocumentID == "" {
		return errors.New("document ID is required")
	}
	if strings.Contains(c.DocumentID, IndexKeySeparator) {
		return ErrInvalidDocumentID
	}
	if c.Ordinal < 0 {
		return errors.New("ordinal must be non-negative")
	}
	if c.Text == "" {
		return ErrEmptyContent
	}
	return nil
}

// IndexKey builds documentID + separator + ordinal.
func IndexKey(documentID string, ordinal int) string {
	return documentID + IndexKeySeparator + strconv.Itoa(ordinal)
}

// DocumentID recovers the owning document from an index key. Keys without a
// separator are returned unchanged.
func DocumentID(indexKey string) string {
	i := strings.LastIndex(indexKey, IndexKeySeparator)
	if i < 0 {
		return indexKey
	}
	return indexKey[:i]
}

// Ordinal recovers the chunk ordinal from an index key, or -1 if the key is malformed.
func Ordinal(indexKey string) int {
	i := strings.LastIndex(indexKey, IndexKeySeparator)
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(indexKey[i+len(IndexKeySeparator):])
	if err != nil {
		return -1
	}
	return n
}
