// Package notify watches the events CSV on disk and triggers corpus
// rebuilds when it changes.
package notify

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of write events most editors and
// download tools produce when replacing a file.
const debounceDelay = 500 * time.Millisecond

// SourceWatcher watches a single CSV file and invokes a callback once
// per settled change.
type SourceWatcher struct {
	path     string
	callback func()
	watcher  *fsnotify.Watcher
	done     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewSourceWatcher creates a watcher for the given CSV path. The
// callback runs after each change, debounced.
func NewSourceWatcher(path string, callback func()) *SourceWatcher {
	return &SourceWatcher{
		path:     filepath.Clean(path),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than
// the file itself so that rename-into-place replacements are seen.
// Call Stop() to clean up.
func (sw *SourceWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(sw.path)); err != nil {
		_ = w.Close()
		return err
	}
	sw.watcher = w

	go sw.loop()
	log.Printf("notify: watching %s for changes", sw.path)
	return nil
}

// Stop shuts down the watcher.
func (sw *SourceWatcher) Stop() {
	if sw.watcher != nil {
		_ = sw.watcher.Close()
	}
	<-sw.done

	sw.mu.Lock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.mu.Unlock()
}

func (sw *SourceWatcher) loop() {
	defer close(sw.done)
	for {
		select {
		case evt, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != sw.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				sw.schedule()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// schedule arms the debounce timer, pushing it back if already armed.
func (sw *SourceWatcher) schedule() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(debounceDelay, func() {
		if sw.callback != nil {
			sw.callback()
		}
	})
}
