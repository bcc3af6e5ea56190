package chunker

import (
	"strings"

	"github.com/blevesearch/segment"
)

// WordTokenizer splits text into Unicode word units (UAX #29). Whitespace and
// punctuation are attached to the preceding word so that decoding is plain
// concatenation and no text is lost between windows.
type WordTokenizer struct{}

// Name implements Tokenizer
func (WordTokenizer) Name() string { return "words" }

// Encode implements Tokenizer
func (WordTokenizer) Encode(text string) []string {
	var units []string

	segmenter := segment.NewWordSegmenterDirect([]byte(text))
	for segmenter.Segment() {
		piece := string(segmenter.Bytes())
		if segmenter.Type() == segment.None && len(units) > 0 {
			units[len(units)-1] += piece
			continue
		}
		units = append(units, piece)
	}

	// The segmenter only fails on invalid input it cannot consume; keep the
	// remainder as one unit rather than dropping it.
	if err := segmenter.Err(); err != nil {
		consumed := 0
		for _, u := range units {
			consumed += len(u)
		}
		if consumed < len(text) {
			units = append(units, text[consumed:])
		}
	}

	return units
}

// Decode implements Tokenizer
func (WordTokenizer) Decode(units []string) string {
	return strings.Join(units, "")
}
