package watcher

// This watcher detects changes by repeatedly checking the modification key of
// every watched file. It works on every platform and on file systems where
// change notifications are unreliable, such as network mounts.
//
// Each scan only checks a random subset of the files so large projects don't
// use much CPU. A file that changed goes on a short list of recently changed
// files that are checked on every scan, so further edits to the file you're
// working on are noticed almost instantly.

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/helpers"
)

const DefaultPollInterval = 100 * time.Millisecond

// The maximum number of recently changed files to check every interval
const maxRecentItemCount = 16

// The minimum number of other files to check every interval
const minItemCountPerIter = 64

// The maximum number of intervals before a change is detected
const maxIntervalsBeforeUpdate = 20

type PollOptions struct {
	Interval time.Duration
	Clock    helpers.Clock
}

type fileState struct {
	exists bool
	key    fs.ModKey
}

type pollWatcher struct {
	fs       fs.FS
	clock    helpers.Clock
	interval time.Duration
	events   chan Event
	random   *rand.Rand

	mutex             sync.Mutex
	files             map[string]fileState
	recentItems       []string
	itemsToScan       []string
	itemsPerIteration int

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewPollWatcher(files fs.FS, options PollOptions) Watcher {
	if options.Interval <= 0 {
		options.Interval = DefaultPollInterval
	}
	if options.Clock == nil {
		options.Clock = helpers.RealClock
	}
	w := &pollWatcher{
		fs:       files,
		clock:    options.Clock,
		interval: options.Interval,
		events:   make(chan Event),
		random:   rand.New(rand.NewSource(options.Clock.Now().UnixNano())),
		files:    make(map[string]fileState),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *pollWatcher) Events() <-chan Event {
	return w.events
}

func (w *pollWatcher) WatchFile(path string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if _, ok := w.files[path]; !ok {
		w.files[path] = w.stat(path)
	}
	return nil
}

func (w *pollWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.events)
	})
	return nil
}

func (w *pollWatcher) loop() {
	defer w.wg.Done()
	alarm := w.clock.NewAlarm()
	defer alarm.Stop()

	for {
		alarm.Reset(w.interval)
		select {
		case <-w.done:
			return
		case <-alarm.C():
		}

		for _, event := range w.scan() {
			select {
			case w.events <- event:
			case <-w.done:
				return
			}
		}
	}
}

func (w *pollWatcher) stat(path string) fileState {
	key, err := w.fs.ModKey(path)
	if err == nil {
		return fileState{exists: true, key: key}
	}

	// The file is there but was changed too recently to have a reliable key
	if errors.Is(err, fs.ErrModKeyUnusable) {
		return fileState{exists: true}
	}
	return fileState{}
}

// Returns an event for a file whose state differs from the last check
func (w *pollWatcher) check(path string) (Event, bool) {
	old := w.files[path]
	current := w.stat(path)
	if current == old {
		return Event{}, false
	}
	w.files[path] = current
	if !current.exists {
		return Event{Kind: Remove, Path: path}, true
	}
	return Event{Kind: Update, Path: path}, true
}

func (w *pollWatcher) scan() []Event {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	var events []Event

	// If we ran out of items to scan, fill the items back up in a random order
	if len(w.itemsToScan) == 0 {
		items := w.itemsToScan[:0]
		for path := range w.files {
			items = append(items, path)
		}
		w.random.Shuffle(len(items), func(i int, j int) {
			items[i], items[j] = items[j], items[i]
		})
		w.itemsToScan = items

		// Determine how many items to check every iteration, rounded up
		perIter := (len(items) + maxIntervalsBeforeUpdate - 1) / maxIntervalsBeforeUpdate
		if perIter < minItemCountPerIter {
			perIter = minItemCountPerIter
		}
		w.itemsPerIteration = perIter
	}

	// Always check all recent items every iteration
	for _, path := range w.recentItems {
		if event, ok := w.check(path); ok {
			events = append(events, event)
		}
	}

	// Check a constant number of items every iteration
	remainingCount := len(w.itemsToScan) - w.itemsPerIteration
	if remainingCount < 0 {
		remainingCount = 0
	}
	toCheck, remaining := w.itemsToScan[remainingCount:], w.itemsToScan[:remainingCount]
	w.itemsToScan = remaining

	for _, path := range toCheck {
		if event, ok := w.check(path); ok {
			events = append(events, event)
			w.markRecent(path)
		}
	}
	return events
}

func (w *pollWatcher) markRecent(path string) {
	for _, recent := range w.recentItems {
		if recent == path {
			return
		}
	}
	w.recentItems = append(w.recentItems, path)
	if len(w.recentItems) > maxRecentItemCount {
		// Remove items from the front of the list when we hit the limit
		copy(w.recentItems, w.recentItems[1:])
		w.recentItems = w.recentItems[:maxRecentItemCount]
	}
}
