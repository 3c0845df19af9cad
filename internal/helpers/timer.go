package helpers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/paeckchen/paeckchen/internal/logger"
)

// Records how long each phase of a build takes. A nil timer records nothing,
// so callers don't need to check whether timing was requested.
type Timer struct {
	data  []timerData
	mutex sync.Mutex
}

type timerData struct {
	time  time.Time
	name  string
	isEnd bool
}

func (t *Timer) Begin(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{
			name: name,
			time: time.Now(),
		})
	}
}

func (t *Timer) End(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{
			name:  name,
			time:  time.Now(),
			isEnd: true,
		})
	}
}

// Returns one line per phase, indented by nesting depth
func (t *Timer) Lines() []string {
	if t == nil {
		return nil
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	type open struct {
		timerData
		line int
	}

	var lines []string
	var stack []open

	for _, item := range t.data {
		if !item.isEnd {
			stack = append(stack, open{timerData: item, line: len(lines)})
			lines = append(lines, "")
			continue
		}

		last := len(stack) - 1
		if last < 0 || stack[last].name != item.name {
			panic("Internal error")
		}
		top := stack[last]
		stack = stack[:last]
		lines[top.line] = fmt.Sprintf("%s%s: %dms",
			strings.Repeat("  ", len(stack)),
			top.name,
			item.time.Sub(top.time).Milliseconds())
	}

	return lines
}

func (t *Timer) Log(log logger.Log) {
	if lines := t.Lines(); len(lines) > 0 {
		log.AddDebug("Timing information:\n" + strings.Join(lines, "\n"))
	}
}
