package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dshills/ctxrank/internal/parser"
)

// Strategy names accepted by New
const (
	StrategyNone         = "none"
	StrategyFixed        = "fixed"
	StrategyBounded      = "bounded"
	StrategyDeclarations = "declarations"
)

const (
	// DefaultSize is the default window size in runes (fixed) or units (bounded)
	DefaultSize = 1000

	// DefaultOverlap is the default overlap between consecutive windows
	DefaultOverlap = 100
)

var (
	// ErrUnknownStrategy is returned by New for an unrecognised strategy name
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrInvalidSize is returned by New for a non-positive window size
	ErrInvalidSize = errors.New("chunk size must be positive")
)

// Chunker splits document text into the pieces that get embedded.
//
// Chunk is pure: every call is independent and the returned sequence is
// finite. CacheKey describes the configuration so that changing it changes
// the embedding cache identity of every chunk produced.
type Chunker interface {
	Chunk(text string) iter.Seq[string]
	CacheKey() string
}

// Config selects and parameterises a chunking strategy
type Config struct {
	Strategy string
	Size     int
	Overlap  int
}

// DefaultConfig returns a fixed-size configuration with default sizes
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyFixed,
		Size:     DefaultSize,
		Overlap:  DefaultOverlap,
	}
}

// New builds the chunker described by cfg
func New(cfg Config) (Chunker, error) {
	strategy := strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if strategy == StrategyNone {
		return Null{}, nil
	}

	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, cfg.Size)
	}
	overlap := max(cfg.Overlap, 0)

	switch strategy {
	case StrategyFixed, "":
		return FixedSize{Size: cfg.Size, Overlap: overlap}, nil
	case StrategyBounded:
		return Bounded{Tokenizer: WordTokenizer{}, Size: cfg.Size, Overlap: overlap}, nil
	case StrategyDeclarations:
		return NewDeclarations(cfg.Size), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// Null yields no chunks. It is used when indexing is disabled for a content type.
type Null struct{}

// Chunk yields nothing
func (Null) Chunk(string) iter.Seq[string] {
	return func(func(string) bool) {}
}

// CacheKey implements Chunker
func (Null) CacheKey() string { return "none" }

// FixedSize splits text into windows of Size runes, each starting Size-Overlap
// runes after the previous one. Texts no longer than Size are yielded whole.
// When Overlap >= Size the window could never advance, so exactly one window
// is yielded.
type FixedSize struct {
	Size    int
	Overlap int
}

// Chunk implements Chunker
func (f FixedSize) Chunk(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		runes := []rune(text)
		if f.Size <= 0 || len(runes) <= f.Size {
			yield(text)
			return
		}

		step := f.Size - f.Overlap
		for start := 0; start < len(runes); start += step {
			end := min(start+f.Size, len(runes))
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) || step <= 0 {
				return
			}
		}
	}
}

// CacheKey implements Chunker
func (f FixedSize) CacheKey() string {
	return fmt.Sprintf("fixed:%d:%d", f.Size, f.Overlap)
}

// Tokenizer converts text to atomic units and back. Decode(Encode(s)) must
// reproduce s.
type Tokenizer interface {
	Name() string
	Encode(text string) []string
	Decode(units []string) string
}

// Bounded windows over tokenizer units instead of runes. Each window holds at
// most Size units and the next window starts Size-Overlap units later; the
// sequence ends with the window that reaches the last unit.
type Bounded struct {
	Tokenizer Tokenizer
	Size      int
	Overlap   int
}

// Chunk implements Chunker
func (b Bounded) Chunk(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		units := b.Tokenizer.Encode(text)
		if len(units) == 0 {
			return
		}
		if b.Size <= 0 || len(units) <= b.Size {
			yield(b.Tokenizer.Decode(units))
			return
		}

		step := b.Size - b.Overlap
		for start := 0; start < len(units); start += step {
			end := min(start+b.Size, len(units))
			if !yield(b.Tokenizer.Decode(units[start:end])) {
				return
			}
			if end == len(units) || step <= 0 {
				return
			}
		}
	}
}

// CacheKey implements Chunker
func (b Bounded) CacheKey() string {
	return fmt.Sprintf("bounded:%s:%d:%d", b.Tokenizer.Name(), b.Size, b.Overlap)
}

// Declarations yields one chunk per top-level Go declaration, doc comment
// included. Declarations longer than MaxRunes are split further with a
// FixedSize window. Text that does not parse as Go, or that declares
// nothing, is yielded whole.
type Declarations struct {
	MaxRunes int

	parser *parser.Parser
}

// NewDeclarations creates a declaration chunker
func NewDeclarations(maxRunes int) Declarations {
	return Declarations{MaxRunes: maxRunes, parser: parser.New()}
}

// Chunk implements Chunker
func (d Declarations) Chunk(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		p := d.parser
		if p == nil {
			p = parser.New()
		}

		decls := p.Declarations("chunk.go", []byte(text))
		if len(decls) == 0 {
			decls = []string{text}
		}

		split := FixedSize{Size: d.MaxRunes}
		for _, decl := range decls {
			for piece := range split.Chunk(decl) {
				if !yield(piece) {
					return
				}
			}
		}
	}
}

// CacheKey implements Chunker
func (d Declarations) CacheKey() string {
	return fmt.Sprintf("decl:%d", d.MaxRunes)
}
