// Package watcher notifies callers when named files in one directory change.
//
// A single fsnotify watch is placed on the directory rather than on each file, because
// feed files are replaced with rename and a per-file watch would follow the old inode.
package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
)

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Chmod

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// Options tunes the watcher.
type Options struct {
	// Debounce is the quiet period before a callback fires. Further events inside the
	// window restart it. Zero fires on every event.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher dispatches file events in Dir to per-file callbacks.
// Callbacks run one at a time and must not call Unwatch or Close.
type Watcher struct {
	dir  string
	opts Options
	fs   *fsnotify.Watcher

	mu     sync.Mutex
	regs   map[string]*registration
	closed bool

	// dispatch serializes callbacks and lets Unwatch/Close wait out an in-flight one.
	dispatch sync.Mutex
	done     chan struct{}
}

type registration struct {
	fn    func()
	timer *time.Timer
}

// New creates dir if needed and starts watching it.
func New(dir string, opts Options) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:  dir,
		opts: opts,
		fs:   fsw,
		regs: make(map[string]*registration),
		done: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watch registers fn for file, replacing any earlier registration for the same name.
func (w *Watcher) Watch(file string, fn func()) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if prev, ok := w.regs[file]; ok {
		stopTimer(prev)
	}
	w.regs[file] = &registration{fn: fn}
	w.mu.Unlock()
	return nil
}

// Unwatch removes the registration for file. No callback for it fires after return.
func (w *Watcher) Unwatch(file string) {
	w.mu.Lock()
	if reg, ok := w.regs[file]; ok {
		stopTimer(reg)
		delete(w.regs, file)
	}
	w.mu.Unlock()
	w.barrier()
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, reg := range w.regs {
		stopTimer(reg)
		delete(w.regs, name)
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	w.barrier()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn(w.opts.Logger, "file watch error", "dir", w.dir, "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Clean(ev.Name) == filepath.Clean(w.dir) {
		w.rearm()
		return
	}
	if ev.Op&relevantOps == 0 {
		return
	}
	name := filepath.Base(ev.Name)

	w.mu.Lock()
	reg, ok := w.regs[name]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	if w.opts.Debounce > 0 {
		stopTimer(reg)
		reg.timer = time.AfterFunc(w.opts.Debounce, func() { w.fire(name, reg) })
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.fire(name, reg)
}

// fire runs reg's callback unless it was replaced, removed or closed in the meantime.
func (w *Watcher) fire(name string, reg *registration) {
	w.dispatch.Lock()
	defer w.dispatch.Unlock()

	w.mu.Lock()
	live := !w.closed && w.regs[name] == reg
	w.mu.Unlock()
	if !live {
		return
	}
	reg.fn()
}

// rearm recreates a removed directory and watches it again, keeping registrations.
func (w *Watcher) rearm() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		logging.Warn(w.opts.Logger, "recreate watch dir failed", "dir", w.dir, "err", err)
		return
	}
	if err := w.fs.Add(w.dir); err != nil {
		logging.Warn(w.opts.Logger, "rewatch dir failed", "dir", w.dir, "err", err)
		return
	}
	logging.Info(w.opts.Logger, "watch dir recreated", "dir", w.dir)
}

func (w *Watcher) barrier() {
	w.dispatch.Lock()
	w.dispatch.Unlock() //nolint:staticcheck // empty critical section waits for an in-flight callback
}

func stopTimer(reg *registration) {
	if reg.timer != nil {
		reg.timer.Stop()
		reg.timer = nil
	}
}
