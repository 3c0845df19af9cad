package api

// The watch controller turns file change events into rebuilds. Changes are
// applied to the module graph as soon as they arrive, but the rebuild waits
// until no change has arrived for the debounce period, so saving many files
// at once only builds once. Events and rebuilds are handled on the same
// goroutine, so the module graph never changes while a build is running.

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/watcher"
)

type watchState uint8

const (
	stateIdle watchState = iota
	stateWatching
	statePendingRebuild
)

func (state watchState) String() string {
	switch state {
	case stateIdle:
		return "idle"
	case stateWatching:
		return "watching"
	case statePendingRebuild:
		return "pending rebuild"
	default:
		panic("Internal error")
	}
}

type watchController struct {
	context   *buildContext
	watcher   watcher.Watcher
	clock     helpers.Clock
	debounce  time.Duration
	onRebuild func(BuildResult)
	shouldLog bool
	useColor  logger.UseColor
	tracer    *logger.Tracer

	mutex sync.Mutex
	state watchState

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newWatchController(c *buildContext, w watcher.Watcher, options WatchOptions) *watchController {
	return &watchController{
		context:   c,
		watcher:   w,
		clock:     c.clock,
		debounce:  c.config.Debounce,
		onRebuild: options.OnRebuild,
		shouldLog: c.options.LogLevel != LogLevelSilent && validateLogLevel(c.options.LogLevel) <= logger.LevelInfo,
		useColor:  validateColor(c.options.Color),
		tracer:    c.tracer.Section("watch"),
		done:      make(chan struct{}),
	}
}

func (w *watchController) getState() watchState {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.state
}

func (w *watchController) setState(state watchState) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.state != state {
		w.tracer.Trace("state", "from", w.state, "to", state)
		w.state = state
	}
}

func (w *watchController) start() {
	w.setState(stateWatching)
	w.wg.Add(1)
	go w.loop()
}

func (w *watchController) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.tracer.Info("watch error", "error", err)
		}
		w.wg.Wait()
		w.setState(stateIdle)
	})
}

func (w *watchController) loop() {
	defer w.wg.Done()
	alarm := w.clock.NewAlarm()
	defer alarm.Stop()

	// The first change since the last build, for the log
	var change string

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events():
			if !ok {
				return
			}
			w.tracer.Trace("change", "kind", event.Kind, "path", event.Path)
			if !w.context.invalidate(event) {
				continue
			}
			if change == "" {
				change = event.Path
			}
			w.setState(statePendingRebuild)
			alarm.Reset(w.debounce)

		case <-alarm.C():
			w.setState(stateWatching)

			// Note: other tools look for these messages on stderr, so don't change them
			if w.shouldLog {
				prettyPath := w.context.prettyPath(change)
				logger.PrintTextWithColor(os.Stderr, w.useColor, func(colors logger.Colors) string {
					return fmt.Sprintf("%s[watch] build started (change: %q)%s\n", colors.Dim, prettyPath, colors.Reset)
				})
			}
			change = ""

			result := w.context.Rebuild()

			if w.shouldLog {
				logger.PrintTextWithColor(os.Stderr, w.useColor, func(colors logger.Colors) string {
					return fmt.Sprintf("%s[watch] build finished%s\n", colors.Dim, colors.Reset)
				})
			}

			// Don't report a build that was cut short by Dispose
			select {
			case <-w.done:
				return
			default:
			}
			if w.onRebuild != nil {
				w.onRebuild(result)
			}
		}
	}
}
