// Package watcher reports debounced batches of source changes under a set of
// directories.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/imyousuf/archaeo/internal/ignore"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event represents a single file system change.
type Event struct {
	Path string
	Op   EventOp
}

// Batch is a set of changes that settled within one quiet period. Events are
// sorted by path and hold the last operation seen for each path.
type Batch struct {
	Events []Event
	Time   time.Time
}

// Paths returns the changed paths in order.
func (b Batch) Paths() []string {
	paths := make([]string, len(b.Events))
	for i, e := range b.Events {
		paths[i] = e.Path
	}
	return paths
}

// Config holds configuration for the file system watcher.
type Config struct {
	Paths   []string
	Matcher *ignore.Matcher
	// Filter selects the files whose changes are reported. Nil accepts all.
	Filter func(path string) bool
	// Debounce is the quiet period before a batch is emitted.
	Debounce time.Duration
	Logger   *slog.Logger
}

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches directory trees for changes and emits debounced batches.
type Watcher struct {
	cfg    Config
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	closed bool
}

// New creates a new file system watcher with the given configuration.
func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Matcher == nil {
		cfg.Matcher = ignore.New(cfg.Paths, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{cfg: cfg, logger: logger}
}

// Start begins watching the configured paths and returns a channel of
// batches. The channel is closed when ctx is cancelled or the watcher closes.
func (w *Watcher) Start(ctx context.Context) (<-chan Batch, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Paths {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Batch, 1)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || (path != root && w.cfg.Matcher.Match(path, true)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Batch) {
	defer close(out)

	pending := make(map[string]EventOp)
	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}

			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			// New directories are watched as they appear.
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if !w.cfg.Matcher.Match(fsEvent.Name, true) {
						if err := w.addRecursive(fsEvent.Name); err != nil {
							w.logger.Warn("watcher.add_failed", "path", fsEvent.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.cfg.Matcher.Match(fsEvent.Name, false) {
				continue
			}
			if w.cfg.Filter != nil && !w.cfg.Filter(fsEvent.Name) {
				continue
			}

			pending[fsEvent.Name] = op
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := Batch{Time: time.Now()}
			for path, op := range pending {
				batch.Events = append(batch.Events, Event{Path: path, Op: op})
			}
			sort.Slice(batch.Events, func(i, j int) bool {
				return batch.Events[i].Path < batch.Events[j].Path
			})
			pending = make(map[string]EventOp)

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher.error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
