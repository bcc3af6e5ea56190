package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"separators", `parse_file-name/path\to.go`, []string{"parse", "file", "name", "path", "to", "go"}},
		{"camel case", "parseFileName", []string{"parse", "file", "name"}},
		{"acronyms stay whole", "HTTPServer", []string{"httpserver"}},
		{"digits", "v2 loader", []string{"v2", "loader"}},
		{"short tokens dropped", "a b getX", []string{"get"}},
		{"deduped case-insensitively", "Config config CONFIG", []string{"config"}},
		{"whitespace", "  load\tthe\nindex  ", []string{"load", "the", "index"}},
		{"punctuation", "func Rank(ctx context.Context)", []string{"func", "rank", "ctx", "context"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text))
		})
	}
}

func TestCoverage(t *testing.T) {
	set := newTokenSet("internal/config/parse.go")

	assert.Equal(t, 1.0, coverage([]string{"config", "parse"}, set))
	assert.Equal(t, 0.5, coverage([]string{"config", "search"}, set))
	assert.Zero(t, coverage([]string{"search"}, set))
	assert.Zero(t, coverage(nil, set))
	assert.Zero(t, coverage([]string{"config"}, newTokenSet("")))
}
