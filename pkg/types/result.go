package types

import (
	"errors"
	"math"
)

var (
	ErrInvalidScore = errors.New("score must be a finite number")
	ErrMissingPath  = errors.New("result path is required")
)

// RelevanceResult is a file-level answer to a relevance query
type RelevanceResult struct {
	Path   string   // Document ID of the file
	Score  float64  // Sum of the file's top chunk scores
	Chunks []string // Texts of the chunks that contributed to Score, best first
}

// Validate checks if the result is well formed
func (r *RelevanceResult) Validate() error {
	if r.Path == "" {
		return ErrMissingPath
	}
	if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
		return ErrInvalidScore
	}
	return nil
}
