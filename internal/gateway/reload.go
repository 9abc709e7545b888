package gateway

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// RouteWatcher hot-reloads the route table when the backing file changes.
// Swaps are atomic, so a request sees either the old table or the new one,
// never a mix. A file that fails to parse keeps the last good table.
type RouteWatcher struct {
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	table    atomic.Pointer[RouteTable]
	path     string
	debounce time.Duration
}

// NewRouteWatcher loads the table at path and watches its directory. Config
// mounts and editors replace files by rename, which a directory watch
// survives and a file watch does not.
func NewRouteWatcher(path string, log *zap.Logger) (*RouteWatcher, error) {
	table, err := LoadRouteFile(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create route watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	rw := &RouteWatcher{
		log:      log,
		watcher:  watcher,
		path:     path,
		debounce: 500 * time.Millisecond,
	}
	rw.table.Store(table)
	return rw, nil
}

// Current returns the live route table.
func (rw *RouteWatcher) Current() *RouteTable {
	return rw.table.Load()
}

// Start applies file changes until ctx is done. Bursts of events (editors
// write several times in quick succession) collapse into one reload via the
// debounce timer.
func (rw *RouteWatcher) Start(ctx context.Context) {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain the timer

	go func() {
		for {
			select {
			case event, ok := <-rw.watcher.Events:
				if !ok {
					return
				}
				if rw.shouldProcessEvent(event) {
					rw.log.Debug("route file change detected",
						zap.String("file", event.Name),
						zap.String("op", event.Op.String()))
					debounceTimer.Reset(rw.debounce)
				}

			case err, ok := <-rw.watcher.Errors:
				if !ok {
					return
				}
				rw.log.Error("route watcher error", zap.Error(err))

			case <-debounceTimer.C:
				rw.reload()

			case <-ctx.Done():
				rw.log.Info("stopping route watcher")
				return
			}
		}
	}()
}

// Stop closes the underlying file watcher.
func (rw *RouteWatcher) Stop() error {
	return rw.watcher.Close()
}

// shouldProcessEvent filters events down to mutations of the routes file.
func (rw *RouteWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create == 0 &&
		event.Op&fsnotify.Write == 0 &&
		event.Op&fsnotify.Rename == 0 {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(rw.path)
}

// reload parses and swaps in the new table, or keeps the previous one.
func (rw *RouteWatcher) reload() {
	table, err := LoadRouteFile(rw.path)
	if err != nil {
		rw.log.Error("route table reload failed, keeping previous table", zap.Error(err))
		return
	}
	rw.table.Store(table)
	rw.log.Info("route table reloaded",
		zap.Int("admin", len(table.Admin)),
		zap.Int("public", len(table.Public)),
		zap.Int("tiered", len(table.Tiered)))
}
