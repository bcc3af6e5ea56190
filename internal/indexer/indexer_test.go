package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxrank/internal/chunker"
	"github.com/dshills/ctxrank/internal/embedcache"
	"github.com/dshills/ctxrank/internal/embedder"
	"github.com/dshills/ctxrank/internal/index"
	"github.com/dshills/ctxrank/internal/vector"
	"github.com/dshills/ctxrank/pkg/types"
)

// mockEmbedder implements embedder.Embedder for testing. Vectors are derived
// from the text and deliberately not unit length.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	texts   []string
	failOn  map[int]bool // 1-based batch call numbers that fail
	onBatch func(call int)
	block   chan struct{}
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{failOn: make(map[int]bool)}
}

func mockVector(text string) []float32 {
	return []float32{float32(len(text)), 1, float32(strings.Count(text, "a"))}
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	resp, err := m.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.texts = append(m.texts, req.Texts...)
	fail := m.failOn[call]
	hook := m.onBatch
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if hook != nil {
		hook(call)
	}
	if fail {
		return nil, fmt.Errorf("%w: simulated outage", embedder.ErrProviderFailed)
	}

	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{
			Vector:    mockVector(text),
			Dimension: 3,
			Provider:  "mock",
			Model:     "test-v1",
		}
	}

	return &embedder.BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   "mock",
		Model:      "test-v1",
	}, nil
}

func (m *mockEmbedder) Dimension() int   { return 3 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) embeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// lineChunker yields one chunk per line
type lineChunker struct{}

func (lineChunker) Chunk(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range strings.Split(text, "\n") {
			if !yield(line) {
				return
			}
		}
	}
}

func (lineChunker) CacheKey() string { return "lines" }

// countingStore is an embedcache.Store that remembers what it was given
type countingStore struct {
	mu    sync.Mutex
	saves int
	data  map[string][]float32
}

func (c *countingStore) Load(context.Context) (map[string][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, nil
}

func (c *countingStore) Save(_ context.Context, snapshot map[string][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.data = snapshot
	return nil
}

func (c *countingStore) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func threeDocuments() MemoryCorpus {
	return MemoryCorpus{
		ID: "memory",
		Documents: []types.Document{
			{ID: "a.go", Content: "alpha one\nalpha two"},
			{ID: "b.go", Content: "beta one\n\nbeta two\nbeta three"},
			{ID: "c.go", Content: "gamma"},
		},
	}
}

func manyDocuments(n int) MemoryCorpus {
	docs := make([]types.Document, n)
	for i := range docs {
		docs[i] = types.Document{ID: fmt.Sprintf("doc%02d.txt", i), Content: fmt.Sprintf("document number %d", i)}
	}
	return MemoryCorpus{ID: "many", Documents: docs}
}

func newTestService(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	store := &countingStore{}
	return New(index.New(), embedcache.New(store), nil), store
}

func assertAllUnit(t *testing.T, svc *Service) {
	t.Helper()
	for key, v := range svc.Snapshot() {
		assert.True(t, vector.IsUnit(v), "vector for %q is not unit length", key)
	}
}

// createTestFile creates a file below dir, creating parent directories
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	return filePath
}

func TestBuild_PopulatesIndex(t *testing.T) {
	svc, store := newTestService(t)
	emb := newMockEmbedder()

	stats, err := svc.Build(context.Background(), threeDocuments(), BuildOptions{
		Embedder:  emb,
		Chunker:   lineChunker{},
		BatchSize: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, stats.Status)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 3, stats.DocumentsIndexed)
	assert.Equal(t, 6, stats.ChunksTotal) // the blank line in b.go is skipped
	assert.Equal(t, 6, stats.ChunksEmbedded)
	assert.Zero(t, stats.CacheHits)
	assert.Equal(t, 2, emb.callCount())

	// pending work goes out in document order, then ordinal order
	assert.Equal(t, []string{
		"alpha one", "alpha two", "beta one", "beta two", "beta three", "gamma",
	}, emb.embeddedTexts())

	entry, ok := svc.Index().Get(types.IndexKey("b.go", 1))
	require.True(t, ok)
	assert.Equal(t, "beta two", entry.Text)

	assert.Len(t, svc.VectorsForDocument("b.go"), 3)
	assertAllUnit(t, svc)

	assert.Equal(t, 1, store.saveCount())
	assert.Equal(t, 6, svc.Cache().Len())
}

func TestBuild_IdempotentRebuild(t *testing.T) {
	svc, store := newTestService(t)
	emb := newMockEmbedder()
	opts := BuildOptions{Embedder: emb, Chunker: lineChunker{}}

	_, err := svc.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)
	first := svc.Snapshot()
	calls := emb.callCount()

	stats, err := svc.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)

	assert.Equal(t, calls, emb.callCount(), "rebuild must not call the provider")
	assert.Equal(t, 6, stats.CacheHits)
	assert.Zero(t, stats.ChunksEmbedded)
	assert.Equal(t, first, svc.Snapshot())

	// nothing new, nothing persisted
	assert.Equal(t, 1, store.saveCount())
}

func TestBuild_CacheSurvivesRestart(t *testing.T) {
	store := &countingStore{}
	emb := newMockEmbedder()
	opts := BuildOptions{Embedder: emb, Chunker: lineChunker{}}

	first := New(nil, embedcache.New(store), nil)
	_, err := first.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)
	calls := emb.callCount()

	cache, err := embedcache.Open(context.Background(), t.TempDir(), store)
	require.NoError(t, err)

	second := New(nil, cache, nil)
	stats, err := second.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)

	assert.Equal(t, calls, emb.callCount())
	assert.Equal(t, 6, stats.CacheHits)
	assert.Equal(t, 6, second.Index().Len())
}

func TestBuild_CancelLeavesValidPartialState(t *testing.T) {
	svc, store := newTestService(t)
	emb := newMockEmbedder()
	emb.onBatch = func(call int) {
		if call == 1 {
			svc.Cancel()
		}
	}
	corpus := manyDocuments(10)
	opts := BuildOptions{Embedder: emb, Chunker: lineChunker{}, BatchSize: 2}

	stats, err := svc.Build(context.Background(), corpus, opts)
	require.NoError(t, err, "cancellation is not an error")

	assert.Equal(t, StatusCancelled, stats.Status)
	assert.Equal(t, 2, stats.ChunksEmbedded)
	assert.Equal(t, 1, emb.callCount())
	assert.Equal(t, 2, svc.Index().Len())
	assert.Equal(t, 2, svc.Cache().Len())
	assertAllUnit(t, svc)
	assert.Zero(t, store.saveCount(), "a cancelled run does not persist")
	assert.Equal(t, StatusCancelled, svc.Progress().Status)
	assert.Contains(t, svc.ProgressText(), "Indexing cancelled")

	emb.onBatch = nil
	stats, err = svc.Build(context.Background(), corpus, opts)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, stats.Status)
	assert.Equal(t, 2, stats.CacheHits)
	assert.Equal(t, 8, stats.ChunksEmbedded)
	assert.Equal(t, 10, svc.Index().Len())
	assert.Len(t, emb.embeddedTexts(), 10, "each chunk embedded exactly once")
	assertAllUnit(t, svc)
	assert.Equal(t, 1, store.saveCount())
}

func TestBuild_ContextCancellation(t *testing.T) {
	svc, _ := newTestService(t)
	emb := newMockEmbedder()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := svc.Build(ctx, manyDocuments(5), BuildOptions{Embedder: emb, Chunker: lineChunker{}})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stats.Status)
	assertAllUnit(t, svc)
}

func TestBuild_FailedBatchIsDropped(t *testing.T) {
	svc, store := newTestService(t)
	emb := newMockEmbedder()
	emb.failOn[1] = true

	stats, err := svc.Build(context.Background(), manyDocuments(6), BuildOptions{
		Embedder:  emb,
		Chunker:   lineChunker{},
		BatchSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, stats.Status)
	assert.Equal(t, 1, stats.BatchesFailed)
	assert.Equal(t, 4, stats.ChunksEmbedded)
	assert.Equal(t, 3, emb.callCount(), "no retry inside the build")
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "simulated outage")

	assert.Equal(t, 4, svc.Index().Len())
	_, ok := svc.Index().Get(types.IndexKey("doc00.txt", 0))
	assert.False(t, ok, "the dropped batch leaves no entry")
	assert.Equal(t, 1, store.saveCount())

	// the next run picks up only what was dropped
	stats, err = svc.Build(context.Background(), manyDocuments(6), BuildOptions{
		Embedder:  emb,
		Chunker:   lineChunker{},
		BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunksEmbedded)
	assert.Equal(t, 6, svc.Index().Len())
}

func TestBuild_SkipsUnreadableDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	corpus := threeDocuments()

	loader := func(ctx context.Context, src Source) (string, error) {
		if src.ID == "b.go" {
			return "", errors.New("permission denied")
		}
		return corpus.Load(ctx, src)
	}

	stats, err := svc.Build(context.Background(), corpus, BuildOptions{
		Embedder: newMockEmbedder(),
		Chunker:  lineChunker{},
		Loader:   loader,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DocumentsSkipped)
	assert.Equal(t, 2, stats.DocumentsIndexed)
	assert.Equal(t, 3, stats.ChunksTotal)
	assert.Nil(t, svc.VectorsForDocument("b.go"))
	assert.Contains(t, stats.ErrorMessages[0], "b.go")
}

func TestBuild_ChunkerChangeForcesReembed(t *testing.T) {
	svc, _ := newTestService(t)
	emb := newMockEmbedder()
	corpus := MemoryCorpus{ID: "one", Documents: []types.Document{
		{ID: "long.txt", Content: strings.Repeat("abcdefghij", 3)},
	}}

	stats, err := svc.Build(context.Background(), corpus, BuildOptions{
		Embedder: emb,
		Chunker:  chunker.FixedSize{Size: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ChunksEmbedded)

	// same windows, different configuration: nothing may be reused
	stats, err = svc.Build(context.Background(), corpus, BuildOptions{
		Embedder: emb,
		Chunker:  chunker.FixedSize{Size: 10, Overlap: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CacheHits)

	stats, err = svc.Build(context.Background(), corpus, BuildOptions{
		Embedder: emb,
		Chunker:  chunker.FixedSize{Size: 15},
	})
	require.NoError(t, err)
	assert.Zero(t, stats.CacheHits)
	assert.Equal(t, 2, stats.ChunksEmbedded)
	assert.Equal(t, 2, svc.Index().Len(), "stale ordinals are pruned")
}

func TestBuild_ExtractorRunsBeforeChunking(t *testing.T) {
	svc, _ := newTestService(t)
	emb := newMockEmbedder()

	_, err := svc.Build(context.Background(), threeDocuments(), BuildOptions{
		Embedder: emb,
		Chunker:  lineChunker{},
		Extractor: func(content, path string) string {
			return path + ": " + strings.ToUpper(strings.SplitN(content, "\n", 2)[0])
		},
	})
	require.NoError(t, err)

	entry, ok := svc.Index().Get(types.IndexKey("a.go", 0))
	require.True(t, ok)
	assert.Equal(t, "a.go: ALPHA ONE", entry.Text)
	assert.Equal(t, 3, svc.Index().Len())
}

func TestBuild_PrunesRemovedDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	opts := BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}}

	corpus := threeDocuments()
	_, err := svc.Build(context.Background(), corpus, opts)
	require.NoError(t, err)

	corpus.Documents = corpus.Documents[:2]
	stats, err := svc.Build(context.Background(), corpus, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EntriesPruned)
	assert.Nil(t, svc.VectorsForDocument("c.go"))
	assert.Equal(t, 5, svc.Index().Len())
}

func TestBuild_CorpusChangeClearsIndex(t *testing.T) {
	svc, _ := newTestService(t)
	opts := BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}}

	_, err := svc.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)

	_, err = svc.Build(context.Background(), manyDocuments(2), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"doc00.txt", "doc01.txt"}, svc.Index().Documents())
}

func TestBuild_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Build(context.Background(), threeDocuments(), BuildOptions{Chunker: lineChunker{}})
	assert.ErrorIs(t, err, ErrNoEmbedder)

	_, err = svc.Build(context.Background(), threeDocuments(), BuildOptions{Embedder: newMockEmbedder()})
	assert.ErrorIs(t, err, ErrNoChunker)

	_, err = svc.Start(context.Background(), nil, BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}})
	assert.ErrorIs(t, err, ErrNoCorpus)

	_, err = svc.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoBuild)
}

func TestBuild_CorpusErrorFails(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.Build(context.Background(), DirCorpus{Root: filepath.Join(t.TempDir(), "missing")}, BuildOptions{
		Embedder: newMockEmbedder(),
		Chunker:  lineChunker{},
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, stats.Status)
	assert.Equal(t, "Indexing failed", svc.ProgressText())
}

func TestStart_SupersedesRunningBuild(t *testing.T) {
	svc, _ := newTestService(t)
	emb := newMockEmbedder()
	emb.block = make(chan struct{})
	opts := BuildOptions{Embedder: emb, Chunker: lineChunker{}}

	firstID, err := svc.Start(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return svc.Progress().Phase == PhaseEmbedding
	}, 2*time.Second, 5*time.Millisecond)

	secondID, err := svc.Start(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	close(emb.block)

	stats, err := svc.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secondID, stats.RunID)
	assert.Equal(t, StatusCompleted, stats.Status)
	assert.Equal(t, 6, svc.Index().Len())
	assertAllUnit(t, svc)
}

func TestStart_StuckRunDoesNotWriteIntoNextCorpus(t *testing.T) {
	svc := New(index.New(), embedcache.New(&countingStore{}), &Config{GracePeriod: 10 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	stuck := newMockEmbedder()
	stuck.onBatch = func(call int) {
		if call == 1 {
			close(started)
			<-release // ignores cancellation
		}
	}

	done := make(chan *Statistics, 1)
	go func() {
		stats, _ := svc.Build(context.Background(), threeDocuments(), BuildOptions{Embedder: stuck, Chunker: lineChunker{}})
		done <- stats
	}()
	<-started

	_, err := svc.Build(context.Background(), manyDocuments(2), BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}})
	require.NoError(t, err)

	close(release)
	old := <-done
	assert.Equal(t, StatusCancelled, old.Status)
	assert.Equal(t, 0, old.ChunksEmbedded)

	assert.Equal(t, []string{"doc00.txt", "doc01.txt"}, svc.Index().Documents())
	assert.Equal(t, 2, svc.Cache().Len())
}

func TestCancel_NothingRunning(t *testing.T) {
	svc, _ := newTestService(t)
	assert.False(t, svc.Cancel())

	_, err := svc.Build(context.Background(), threeDocuments(), BuildOptions{
		Embedder: newMockEmbedder(),
		Chunker:  lineChunker{},
	})
	require.NoError(t, err)
	assert.False(t, svc.Cancel())
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t)
	opts := BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}}

	_, err := svc.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)
	require.NotNil(t, svc.Snapshot())

	svc.Clear()
	assert.Nil(t, svc.Snapshot())
	assert.Equal(t, 6, svc.Cache().Len(), "the cache outlives the index")

	stats, err := svc.Build(context.Background(), threeDocuments(), opts)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.CacheHits)
}

func TestProgressText(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, "Idle", svc.ProgressText())

	_, err := svc.Build(context.Background(), threeDocuments(), BuildOptions{
		Embedder: newMockEmbedder(),
		Chunker:  lineChunker{},
	})
	require.NoError(t, err)

	p := svc.Progress()
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, PhaseDone, p.Phase)
	assert.Equal(t, 3, p.DocumentsTotal)
	assert.True(t, strings.HasPrefix(svc.ProgressText(), "Indexed 3 documents, 6 chunks (0 cached) in "))

	running := Progress{
		Status:             StatusRunning,
		Phase:              PhaseEmbedding,
		DocumentsTotal:     4,
		DocumentsProcessed: 4,
		ChunksTotal:        10,
		ChunksEmbedded:     3,
		CacheHits:          4,
	}
	assert.Equal(t, "Indexing: 4/4 documents, 3/6 chunks embedded (4 cached)", running.String())
}

func TestDirCorpus_Sources(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "main.go", "package main\n")
	createTestFile(t, tmpDir, "main_test.go", "package main\n")
	createTestFile(t, tmpDir, "pkg/util.go", "package pkg\n")
	createTestFile(t, tmpDir, "README.md", "# README\n")
	createTestFile(t, tmpDir, "vendor/lib/lib.go", "package lib\n")
	createTestFile(t, tmpDir, ".git/config.go", "package git\n")
	createTestFile(t, tmpDir, ".hidden.go", "package hidden\n")

	tests := []struct {
		name   string
		corpus DirCorpus
		want   []string
	}{
		{
			name:   "go sources",
			corpus: DirCorpus{Root: tmpDir, Extensions: []string{".go"}},
			want:   []string{"main.go", "pkg/util.go"},
		},
		{
			name:   "include tests",
			corpus: DirCorpus{Root: tmpDir, Extensions: []string{".go"}, IncludeTests: true},
			want:   []string{"main.go", "main_test.go", "pkg/util.go"},
		},
		{
			name:   "include vendor",
			corpus: DirCorpus{Root: tmpDir, Extensions: []string{".go"}, IncludeVendor: true},
			want:   []string{"main.go", "pkg/util.go", "vendor/lib/lib.go"},
		},
		{
			name:   "every file",
			corpus: DirCorpus{Root: tmpDir},
			want:   []string{"README.md", "main.go", "pkg/util.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, err := tt.corpus.Sources(context.Background())
			require.NoError(t, err)

			ids := make([]string, len(sources))
			for i, src := range sources {
				ids[i] = src.ID
				assert.True(t, filepath.IsAbs(src.Location) || strings.HasPrefix(src.Location, tmpDir))
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestDirCorpus_EmptyAndMissing(t *testing.T) {
	sources, err := DirCorpus{Root: t.TempDir()}.Sources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = DirCorpus{Root: filepath.Join(t.TempDir(), "nope")}.Sources(context.Background())
	assert.Error(t, err)
}

func TestReadFile_RejectsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x81}, 0644))

	_, err := ReadFile(context.Background(), Source{ID: "blob.bin", Location: path})
	assert.ErrorIs(t, err, ErrNotText)

	text := createTestFile(t, dir, "ok.txt", "hello")
	content, err := ReadFile(context.Background(), Source{ID: "ok.txt", Location: text})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestBuild_DirCorpus(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "notes/a.txt", "first line\nsecond line")
	createTestFile(t, tmpDir, "b.txt", "only line")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "c.txt"), []byte{0xff, 0xfe}, 0644))

	svc, _ := newTestService(t)
	stats, err := svc.Build(context.Background(), DirCorpus{Root: tmpDir, Extensions: []string{".txt"}}, BuildOptions{
		Embedder: newMockEmbedder(),
		Chunker:  lineChunker{},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DocumentsIndexed)
	assert.Equal(t, 1, stats.DocumentsSkipped)
	assert.Equal(t, []string{"b.txt", "notes/a.txt"}, svc.Index().Documents())
}
