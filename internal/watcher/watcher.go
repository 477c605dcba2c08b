// Package watcher emits debounced change events for handler source files.
// Rapid bursts of writes to the same file collapse into one event, and
// excluded paths (generated output, ignore patterns) never produce events.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp is the kind of file system change observed.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

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

// Event is one debounced change to a handler source file.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Options configures a source-tree watcher.
type Options struct {
	// Root is the handler source directory, watched recursively.
	Root string
	// Extensions are source file suffixes that produce events. Empty means
	// every file qualifies.
	Extensions []string
	// ExcludePatterns are gitignore-style patterns applied on top of any
	// .gitignore files found under Root.
	ExcludePatterns []string
	// Debounce is how long a path must stay quiet before its event fires.
	Debounce time.Duration
	// Logf receives watcher diagnostics. Nil disables them.
	Logf func(format string, args ...any)
}

// Watcher watches one source tree and emits debounced per-file events.
type Watcher struct {
	opts    Options
	matcher *ExcludeMatcher
	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
}

// New builds a watcher for opts.Root. Ignore rules are loaded once at
// construction; a changed .gitignore requires a new watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	matcher := NewExcludeMatcher(opts.Root, opts.ExcludePatterns)
	if err := matcher.Load(); err != nil {
		return nil, err
	}
	return &Watcher{opts: opts, matcher: matcher}, nil
}

// Start begins watching and returns the event channel. The channel closes
// when ctx is cancelled or the underlying watcher shuts down.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	if err := w.addRecursive(w.opts.Root); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan Event, 100)
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
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !info.IsDir() {
			return nil
		}
		if w.matcher.Match(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// wantsPath reports whether a file path qualifies as handler source.
func (w *Watcher) wantsPath(path string) bool {
	if w.matcher.Match(path) {
		return false
	}
	if len(w.opts.Extensions) == 0 {
		return true
	}
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) logf(format string, args ...any) {
	if w.opts.Logf != nil {
		w.opts.Logf(format, args...)
	}
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)

	// Per-path debounce state. A later event for the same path replaces the
	// pending one and restarts its timer.
	type pending struct {
		event Event
		timer *time.Timer
	}
	pendingEvents := make(map[string]*pending)
	var mu sync.Mutex

	emit := func(evt Event) {
		select {
		case out <- evt:
		case <-ctx.Done():
		}
	}

	schedule := func(evt Event) {
		mu.Lock()
		defer mu.Unlock()

		path := evt.Path
		if p, exists := pendingEvents[path]; exists {
			p.timer.Stop()
			p.event = evt
		} else {
			pendingEvents[path] = &pending{event: evt}
		}
		pendingEvents[path].timer = time.AfterFunc(w.opts.Debounce, func() {
			mu.Lock()
			e := pendingEvents[path]
			delete(pendingEvents, path)
			mu.Unlock()
			if e != nil {
				emit(e.event)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, p := range pendingEvents {
				p.timer.Stop()
			}
			mu.Unlock()
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}

			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			// Newly created directories join the watch set even though they
			// never qualify as source themselves.
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(fsEvent.Name)
					continue
				}
			}

			if !w.wantsPath(fsEvent.Name) {
				continue
			}

			schedule(Event{Path: fsEvent.Name, Op: op, Time: time.Now()})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logf("watch error: %v", err)
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
