package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before rebuilding
const DefaultDebounce = 500 * time.Millisecond

// Watch rebuilds corpus whenever a file below its root changes. Bursts of
// events within debounce of each other trigger a single Start, which
// supersedes any build still running. Watch blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, corpus DirCorpus, opts BuildOptions, debounce time.Duration) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := s.watchTree(watcher, corpus, corpus.Root); err != nil {
		return err
	}
	s.logger.Info("watching corpus", "root", corpus.Root, "debounce", debounce)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !corpus.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.watchTree(watcher, corpus, event.Name); err != nil {
						s.logger.Warn("cannot watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			s.logger.Debug("corpus changed", "path", event.Name, "op", event.Op.String())
			fire = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)

		case <-fire:
			fire = nil
			runID, err := s.Start(ctx, corpus, opts)
			if err != nil {
				s.logger.Error("rebuild after change failed to start", "error", err)
				continue
			}
			s.logger.Info("rebuild started after change", "run_id", runID)
		}
	}
}

// watchTree adds root and every directory below it that the corpus would walk
func (s *Service) watchTree(watcher *fsnotify.Watcher, corpus DirCorpus, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != corpus.Root && corpus.skipDir(entry.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (d DirCorpus) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || (!d.IncludeVendor && name == "vendor")
}

// relevant filters out events the next build would not see
func (d DirCorpus) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !d.IncludeTests && strings.HasSuffix(name, "_test.go") {
		return false
	}
	// Directories carry no extension; removed ones can no longer be stat'ed
	return filepath.Ext(name) == "" || d.matches(name)
}
