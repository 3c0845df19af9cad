package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/paeckchen/paeckchen/internal/logger"
)

// Editor swap files and VCS metadata change all the time and never affect a
// build
var DefaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type NotifyOptions struct {
	// Glob patterns in addition to DefaultIgnores
	Ignore []string
	Tracer *logger.Tracer
}

// Watches the directories containing the watched files through the operating
// system's notification API. Watching the directory instead of the file
// keeps working across editors that save by renaming a new file into place,
// and it reports files that are created later.
type notifyWatcher struct {
	fsw     *fsnotify.Watcher
	events  chan Event
	ignores []string
	tracer  *logger.Tracer

	mutex sync.Mutex
	dirs  map[string]bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

func NewNotifyWatcher(options NotifyOptions) (Watcher, error) {
	for _, pattern := range options.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("Invalid ignore pattern %q", pattern)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Could not start watching: %w", err)
	}

	w := &notifyWatcher{
		fsw:     fsw,
		events:  make(chan Event),
		ignores: append(append([]string{}, DefaultIgnores...), options.Ignore...),
		tracer:  options.Tracer.Section("watch"),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *notifyWatcher) Events() <-chan Event {
	return w.events
}

func (w *notifyWatcher) WatchFile(path string) error {
	dir := filepath.Dir(path)

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("Could not watch %q: %w", dir, err)
	}
	w.dirs[dir] = true
	w.tracer.Trace("watching", "dir", dir)
	return nil
}

func (w *notifyWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fsw.Close()
		w.wg.Wait()
		close(w.events)
	})
	return w.closeErr
}

func (w *notifyWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			event, ok := w.translate(evt)
			if !ok {
				continue
			}
			select {
			case w.events <- event:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.tracer.Info("watch error", "error", err)
		}
	}
}

func (w *notifyWatcher) translate(evt fsnotify.Event) (Event, bool) {
	if w.isIgnored(evt.Name) {
		return Event{}, false
	}
	switch {
	case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
		return Event{Kind: Remove, Path: evt.Name}, true
	case evt.Has(fsnotify.Create), evt.Has(fsnotify.Write):
		return Event{Kind: Update, Path: evt.Name}, true
	}
	return Event{}, false
}

func (w *notifyWatcher) isIgnored(path string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range w.ignores {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
