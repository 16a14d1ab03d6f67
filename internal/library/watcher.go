package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"

	"github.com/fsnotify/fsnotify"
)

// OnChangeFunc is invoked after the index has been refreshed in response
// to filesystem activity. It receives the full newest-first path list.
type OnChangeFunc func(result LoadResult)

// DefaultDebounce coalesces bursts of events (a copy in progress emits
// many writes) into one rescan.
const DefaultDebounce = 400 * time.Millisecond

// Watcher monitors the library roots for file system events and refreshes
// the index when something relevant changes.
type Watcher struct {
	index    *Index
	watcher  *fsnotify.Watcher
	onChange OnChangeFunc
	debounce time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher creates a Watcher over every root of index.
// The onChange callback fires after each debounced refresh.
func NewWatcher(index *Index, onChange OnChangeFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		index:    index,
		watcher:  fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It blocks until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	logger := xlog.WithComponent("library")

	for _, root := range w.index.Roots() {
		w.addTree(root)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			logger.Debug().Msg("watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
				}
			}
			if !isRelevantEvent(event) {
				continue
			}
			logger.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("event")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			res := w.index.Load(ctx)
			if w.onChange != nil {
				w.onChange(res)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// Stop halts the watcher loop and releases the fsnotify resources.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// addTree registers dir and every non-hidden subdirectory.
func (w *Watcher) addTree(dir string) {
	logger := xlog.WithComponent("library")
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logger.Debug().Err(err).Str("dir", path).Msg("cannot watch")
		}
		return nil
	})
}

// isRelevantEvent filters for events that can change the index: videos
// appearing, disappearing, being renamed or rewritten, and directories
// coming or going.
func isRelevantEvent(e fsnotify.Event) bool {
	if e.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
		return false
	}
	if media.IsVideo(e.Name) {
		return true
	}
	// Directory removal/rename carries no extension.
	return filepath.Ext(e.Name) == "" && e.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
