package devserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// watcher reports source changes under a directory tree. Bursts of changes
// are coalesced: the first change fires immediately, later changes inside
// the debounce window collapse into one trailing notification.
type watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	limiter  *rate.Limiter
	onChange func(name string)
	logger   *log.Logger

	mu      sync.Mutex
	pending bool
	closed  bool
	done    chan struct{}
}

// newWatcher watches root recursively and calls onChange for changes.
//
// Parameters:
//   - root: Directory to watch
//   - debounce: Minimum spacing between notifications
//   - logger: Logger to use
//   - onChange: Called with the changed path
//
// Returns:
//   - *watcher: A running watcher
//   - error: If root cannot be watched
func newWatcher(root string, debounce time.Duration, logger *log.Logger, onChange func(name string)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &watcher{
		fsw:      fsw,
		root:     root,
		limiter:  rate.NewLimiter(rate.Every(debounce), 1),
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	go w.loop()
	return w, nil
}

// addTree adds dir and every non-hidden subdirectory.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && isHidden(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if isHidden(ev.Name) || strings.HasSuffix(ev.Name, "~") {
		return
	}
	if ev.Op == fsnotify.Chmod {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("failed to watch new directory", "dir", ev.Name, "err", err)
			}
		}
	}

	w.logger.Debug("file event", "op", ev.Op.String(), "file", ev.Name)
	w.trigger(ev.Name)
}

// trigger schedules a notification for name unless one is already pending.
func (w *watcher) trigger(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending || w.closed {
		return
	}
	w.pending = true

	delay := w.limiter.Reserve().Delay()
	time.AfterFunc(delay, func() {
		w.mu.Lock()
		w.pending = false
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.onChange(w.relative(name))
		}
	})
}

func (w *watcher) relative(name string) string {
	if rel, err := filepath.Rel(w.root, name); err == nil {
		return filepath.ToSlash(rel)
	}
	return name
}

// Close stops the watcher.
func (w *watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	return err
}

func isHidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}
