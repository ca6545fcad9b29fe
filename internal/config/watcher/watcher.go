// Package watcher provides file watching for configuration live reload.
//
// The watcher monitors individual files for changes and calls the
// registered handlers once a burst of changes to a file settles. It
// watches the directory holding each file, so files replaced by an
// editor's write-and-rename are still followed.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher errors.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrAlreadyWatching = errors.New("already watching path")
	ErrNotWatching     = errors.New("not watching path")
)

// DefaultDebounce is how long a file must stay quiet before its change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation

	// Time is when the event occurred.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// Watcher monitors files for changes.
type Watcher struct {
	mu sync.Mutex

	fs *fsnotify.Watcher

	// Watched files and the number of watched files per directory
	files map[string]bool
	dirs  map[string]int

	handlers []Handler

	debounce time.Duration
	pending  map[string]Operation
	timers   map[string]*time.Timer

	log *zap.Logger

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for rapid changes. Zero reports
// every change as it arrives.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		debounce: DefaultDebounce,
		pending:  make(map[string]Operation),
		timers:   make(map[string]*time.Timer),
		log:      zap.NewNop(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch adds a file to the watch list.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if w.files[abs] {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Unwatch removes a file from the watch list.
func (w *Watcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !w.files[abs] {
		return ErrNotWatching
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	if w.dirs[dir]--; w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.fs.Remove(dir)
	}
	return nil
}

// IsWatching returns true if the file is being watched.
func (w *Watcher) IsWatching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// OnChange registers a handler for file changes.
func (w *Watcher) OnChange(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Close stops the watcher. Pending debounced changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	op, ok := operation(ev)
	if !ok {
		return
	}
	name := filepath.Clean(ev.Name)

	w.mu.Lock()
	if w.closed || !w.files[name] {
		w.mu.Unlock()
		return
	}
	if w.debounce == 0 {
		handlers := append([]Handler(nil), w.handlers...)
		w.mu.Unlock()
		dispatch(handlers, Event{Path: name, Op: op, Time: time.Now()})
		return
	}
	w.pending[name] = op
	if t, ok := w.timers[name]; ok {
		t.Reset(w.debounce)
	} else {
		w.timers[name] = time.AfterFunc(w.debounce, func() { w.fire(name) })
	}
	w.mu.Unlock()
}

// fire reports the settled change of name.
func (w *Watcher) fire(name string) {
	w.mu.Lock()
	op, ok := w.pending[name]
	delete(w.pending, name)
	delete(w.timers, name)
	if w.closed || !ok {
		w.mu.Unlock()
		return
	}
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	dispatch(handlers, Event{Path: name, Op: op, Time: time.Now()})
}

func dispatch(handlers []Handler, ev Event) {
	for _, h := range handlers {
		h(ev)
	}
}

// operation maps an fsnotify event to an Operation. Attribute changes are
// not reported.
func operation(ev fsnotify.Event) (Operation, bool) {
	switch {
	case ev.Has(fsnotify.Remove):
		return OpRemove, true
	case ev.Has(fsnotify.Rename):
		return OpRename, true
	case ev.Has(fsnotify.Create):
		return OpCreate, true
	case ev.Has(fsnotify.Write):
		return OpWrite, true
	default:
		return 0, false
	}
}
