package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stevelr/kv-assets/internal/logging"
	"github.com/stevelr/kv-assets/internal/util"
)

// debounceInterval is how long a burst of file events may grow before a
// resync runs. Editors and build tools touch many files in quick
// succession; syncing once per burst keeps uploads coalesced.
const debounceInterval = 2 * time.Second

// Watch performs an initial sync and then resyncs whenever files under
// the asset directory change, until ctx is cancelled. Pruning is never
// done from watch mode; run 'kvsync sync --prune' explicitly.
func (s *Service) Watch(ctx context.Context) error {
	w, err := newWatcher(s.cfg.AssetDir)
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer w.Close()

	pending := util.NewSyncSet()
	go func() {
		for event := range w.Events {
			logging.Debugf("Received %s event: %s", event.Op, event.Path)
			pending.Add(event.Path)
		}
	}()
	go s.resyncLoop(ctx, pending)

	if err = s.Sync(ctx, false); err != nil {
		logging.Error("Initial sync failed", err)
	}

	return w.Run(ctx)
}

func (s *Service) resyncLoop(ctx context.Context, pending *util.SyncSet) {
	ticker := time.NewTicker(debounceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed := pending.Drain()
			if len(changed) == 0 {
				continue
			}
			logging.Infof("Detected %d changed paths, resyncing", len(changed))
			if err := s.Sync(ctx, false); err != nil {
				logging.Error("Sync failed", err)
			}
		}
	}
}

type watchEvent struct {
	Path string
	Op   fsnotify.Op
}

type watcher struct {
	watcher  *fsnotify.Watcher
	Events   chan watchEvent
	RootPath string
}

func newWatcher(rootPath string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		watcher:  fsw,
		Events:   make(chan watchEvent),
		RootPath: rootPath,
	}

	// NOTE: fsnotify does not recursively watch subdirectories
	err = filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err = w.addDir(path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (w *watcher) addDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("add-dir: could not stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil
	}

	if err = w.watcher.Add(path); err != nil {
		return fmt.Errorf("add-dir: could not add directory to watcher: %w", err)
	}
	logging.Debugf("Added directory to watcher: %s", path)
	return nil
}

func (w *watcher) Close() {
	close(w.Events)
	if err := w.watcher.Close(); err != nil {
		logging.Warnf("Error closing watcher: %s", err)
	}
}

func (w *watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			relativePath, err := filepath.Rel(w.RootPath, event.Name)
			if err != nil || relativePath == ".." || event.Name == w.RootPath {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err = w.addDir(event.Name); err != nil {
						return fmt.Errorf("add-dir: could not add directory to watcher: %w", err)
					}
				}
			}

			w.Events <- watchEvent{Path: relativePath, Op: event.Op}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logging.Warnf("FSNotify Error: %v", err)
		}
	}
}
