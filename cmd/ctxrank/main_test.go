package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxrank/internal/config"
	"github.com/dshills/ctxrank/internal/embedder"
)

// isolate points configuration at temp locations and the local provider
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv(config.EnvCacheDir, t.TempDir())
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)
	t.Setenv(embedder.EnvJinaAPIKey, "")
	t.Setenv(embedder.EnvOpenAIAPIKey, "")
	t.Setenv(embedder.EnvOllamaBaseURL, "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	root := newRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

func createProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"auth/login.go":   "package auth\n\n// Login checks the user password against the stored hash.\nfunc Login(user, password string) error {\n\treturn nil\n}\n",
		"auth/session.go": "package auth\n\n// NewSession creates a session token for a logged in user.\nfunc NewSession(user string) string {\n\treturn user\n}\n",
		"db/query.go":     "package db\n\n// Query runs a database query and returns the rows.\nfunc Query(sql string) int {\n\treturn 0\n}\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-version-1.0.0"
	defer func() { version = original }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ctxrank version test-version-1.0.0")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestCommands_ArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"index needs a dir", []string{"index"}, "accepts 1 arg(s)"},
		{"search needs a query", []string{"search", "/tmp"}, "accepts 2 arg(s)"},
		{"related needs a dir", []string{"related"}, "accepts 1 arg(s)"},
		{"related needs a prompt or file", []string{"related", "/tmp"}, "--prompt or --file is required"},
		{"serve takes no args", []string{"serve", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIndexCmd_MissingDirectory(t *testing.T) {
	isolate(t)

	_, err := execute(t, "index", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestIndexSearchRelated(t *testing.T) {
	isolate(t)
	root := createProject(t)

	out, err := execute(t, "index", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing complete")
	assert.Contains(t, out, "Documents indexed: 3")

	out, err = execute(t, "search", root, "database query rows", "--json", "--limit", "1")
	require.NoError(t, err)

	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "db/query.go", resp.Results[0].Path)
	assert.Equal(t, 1, resp.Results[0].Rank)

	out, err = execute(t, "related", root, "--file", filepath.Join(root, "auth", "login.go"))
	require.NoError(t, err)
	assert.Contains(t, out, "[1] auth/session.go")
	assert.NotContains(t, out, "] auth/login.go")
}

func TestSearchCmd_NoMatches(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	out, err := execute(t, "search", root, "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "The index is empty")
}

func TestRelativePaths(t *testing.T) {
	root := filepath.FromSlash("/work/project")

	got := relativePaths(root, []string{
		filepath.Join(root, "auth", "login.go"),
		"db/./query.go",
		"README.md",
	})
	assert.Equal(t, []string{"auth/login.go", "db/query.go", "README.md"}, got)
	assert.Nil(t, relativePaths(root, nil))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "func Login(user string)", preview("func Login(user string)\n\t", 40))
	assert.Equal(t, "a b c", preview("a\n  b\tc", 10))

	long := strings.Repeat("x", 200)
	got := preview(long, 10)
	assert.Equal(t, strings.Repeat("x", 10)+"...", got)
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb\n", "  "))
}
