package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	svc, _ := newTestService(t)
	opts := BuildOptions{Embedder: newMockEmbedder(), Chunker: lineChunker{}}
	corpus := DirCorpus{Root: root, Extensions: []string{".txt"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, corpus, opts, 20*time.Millisecond)
	}()

	// the watcher registers asynchronously, so keep touching the file until a
	// rebuild has picked it up
	writes := 0
	require.Eventually(t, func() bool {
		if len(svc.VectorsForDocument("sub/new.txt")) > 0 {
			return true
		}
		writes++
		_ = os.MkdirAll(filepath.Join(root, "sub"), 0755)
		_ = os.WriteFile(filepath.Join(root, "sub", "new.txt"), []byte(fmt.Sprintf("revision %d", writes)), 0644)
		return false
	}, 5*time.Second, 150*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_RequiresOptions(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Watch(context.Background(), DirCorpus{Root: t.TempDir()}, BuildOptions{}, time.Millisecond)
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

func TestDirCorpus_Relevant(t *testing.T) {
	corpus := DirCorpus{Root: "/src", Extensions: []string{".go"}}

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/src/main.go", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/src/main.go", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/src/main_test.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/src/.main.go.swp", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/src/README.md", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/src/pkg", Op: fsnotify.Remove}, true},
	}

	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, corpus.relevant(tt.event))
		})
	}
}

func TestWatchTree_SkipsHiddenAndVendor(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"pkg/inner", ".git/objects", "vendor/lib"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() {
		_ = watcher.Close()
	}()

	svc, _ := newTestService(t)
	require.NoError(t, svc.watchTree(watcher, DirCorpus{Root: root}, root))

	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "pkg"),
		filepath.Join(root, "pkg/inner"),
	}, watcher.WatchList())
}
