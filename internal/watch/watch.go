// Package watch notifies subscribers when a repository's refs or index change.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thiagokokada/gitview-go/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

type Watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	debounce *debounce.Debouncer
	subs     map[int]chan struct{}
	nextID   int
	closed   bool
	done     chan struct{}
}

// New watches gitDir and its ref directories. Bursts of events closer than
// delay apart produce a single notification.
func New(gitDir string, delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for _, path := range watchPaths(gitDir) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			err := errors.Join(err, fsw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &Watcher{
		fs:   fsw,
		subs: make(map[int]chan struct{}),
		done: make(chan struct{}),
	}
	w.debounce = debounce.New(delay, w.broadcast)
	go w.loop()
	return w, nil
}

// Subscribe returns a channel that receives a value after each debounced
// change, and a function that releases it. Slow receivers miss coalesced
// notifications rather than blocking others.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan struct{}, 1)
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if sub, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
	w.mu.Unlock()
	w.debounce.Stop()
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) broadcast() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	slog.Debug("repository change broadcast", slog.Int("subscribers", len(w.subs)))
	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// watchPaths lists gitDir plus the ref directories that exist; fsnotify is not recursive.
func watchPaths(gitDir string) []string {
	if gitDir == "" {
		return nil
	}
	paths := []string{gitDir}
	for _, sub := range []string{"refs/heads", "refs/tags"} {
		dir := filepath.Join(gitDir, filepath.FromSlash(sub))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			paths = append(paths, dir)
		}
	}
	return paths
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
