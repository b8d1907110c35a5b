// Package watch turns files dropped into a folder into upload selections.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"researchdesk/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DropFolder watches a directory and emits the path of every allowed file
// that is created or rewritten there, once writes have settled.
type DropFolder struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	allow    func(name string) bool
	settle   time.Duration
	pending  map[string]time.Time
	events   chan string
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewDropFolder creates a watcher for dir. allow filters by filename; nil accepts all.
func NewDropFolder(dir string, allow func(name string) bool) (*DropFolder, error) {
	if dir == "" {
		return nil, fmt.Errorf("drop folder path required")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &DropFolder{
		watcher: w,
		dir:     dir,
		allow:   allow,
		settle:  500 * time.Millisecond, // a copy in progress fires many writes
		pending: make(map[string]time.Time),
		events:  make(chan string, 16),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// SetSettle overrides how long a file must be quiet before it is emitted.
// Call before Start.
func (d *DropFolder) SetSettle(dur time.Duration) {
	d.mu.Lock()
	d.settle = dur
	d.mu.Unlock()
}

// Dir returns the watched directory.
func (d *DropFolder) Dir() string {
	return d.dir
}

// Events delivers settled file paths. It is closed after Stop.
func (d *DropFolder) Events() <-chan string {
	return d.events
}

// Start creates the folder if needed and begins watching in a goroutine.
func (d *DropFolder) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		d.setRunning(false)
		return fmt.Errorf("failed to create drop folder: %w", err)
	}
	if err := d.watcher.Add(d.dir); err != nil {
		d.setRunning(false)
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}
	logging.Get(logging.CategoryWatch).Info("watching drop folder %s", d.dir)

	go d.run(ctx)
	return nil
}

func (d *DropFolder) setRunning(v bool) {
	d.mu.Lock()
	d.running = v
	d.mu.Unlock()
}

// Stop ends the watch loop, waits for it, and closes Events.
func (d *DropFolder) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		wasRunning := d.running
		d.running = false
		d.mu.Unlock()

		close(d.stopCh)
		if wasRunning {
			<-d.doneCh
		}
		if err := d.watcher.Close(); err != nil {
			logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
		}
		close(d.events)
	})
}

func (d *DropFolder) run(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(event)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)

		case <-ticker.C:
			d.flushSettled()
		}
	}
}

func (d *DropFolder) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	if d.allow != nil && !d.allow(name) {
		return
	}

	d.mu.Lock()
	d.pending[event.Name] = time.Now()
	d.mu.Unlock()
	logging.Get(logging.CategoryWatch).Debug("%s event for %s", event.Op, event.Name)
}

func (d *DropFolder) flushSettled() {
	d.mu.Lock()
	var ready []string
	for path, last := range d.pending {
		if time.Since(last) >= d.settle {
			ready = append(ready, path)
			delete(d.pending, path)
		}
	}
	d.mu.Unlock()

	for _, path := range ready {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		select {
		case d.events <- path:
		default:
			logging.Get(logging.CategoryWatch).Warn("dropping %s: event buffer full", path)
		}
	}
}
