package helpers

import (
	"sync"
	"time"
)

// An alarm delivers one tick on its channel after the duration passed to the
// last call to Reset. Calling Reset again before it fires cancels the earlier
// deadline, which is what debouncing needs.
type Alarm interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type Clock interface {
	Now() time.Time
	NewAlarm() Alarm
}

type realClock struct{}

var RealClock Clock = realClock{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewAlarm() Alarm {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return &realAlarm{timer: timer}
}

type realAlarm struct {
	timer *time.Timer
}

func (a *realAlarm) C() <-chan time.Time {
	return a.timer.C
}

func (a *realAlarm) Reset(d time.Duration) {
	a.timer.Reset(d)
}

func (a *realAlarm) Stop() {
	a.timer.Stop()
}

// A clock for tests. Time only moves when Advance is called.
type FakeClock struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	now    time.Time
	alarms []*fakeAlarm
}

func NewFakeClock(now time.Time) *FakeClock {
	clock := &FakeClock{now: now}
	clock.cond = sync.NewCond(&clock.mutex)
	return clock
}

func (clock *FakeClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.now
}

func (clock *FakeClock) NewAlarm() Alarm {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	alarm := &fakeAlarm{clock: clock, c: make(chan time.Time, 1)}
	clock.alarms = append(clock.alarms, alarm)
	return alarm
}

// Moves time forward and fires every alarm whose deadline has passed
func (clock *FakeClock) Advance(d time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.now = clock.now.Add(d)
	for _, alarm := range clock.alarms {
		if alarm.armed && !alarm.deadline.After(clock.now) {
			alarm.armed = false
			select {
			case alarm.c <- clock.now:
			default:
			}
		}
	}
	clock.cond.Broadcast()
}

// Waits until exactly "count" alarms are armed. Tests use this to make sure
// the code under test has reacted before moving time forward.
func (clock *FakeClock) BlockUntilArmed(count int) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	for clock.armedLocked() != count {
		clock.cond.Wait()
	}
}

// Counts calls to Reset across all alarms. Waiting on this works even when an
// alarm that is already armed gets pushed back.
func (clock *FakeClock) Resets() int {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.resetsLocked()
}

func (clock *FakeClock) BlockUntilResets(count int) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	for clock.resetsLocked() < count {
		clock.cond.Wait()
	}
}

func (clock *FakeClock) armedLocked() int {
	armed := 0
	for _, alarm := range clock.alarms {
		if alarm.armed {
			armed++
		}
	}
	return armed
}

func (clock *FakeClock) resetsLocked() int {
	resets := 0
	for _, alarm := range clock.alarms {
		resets += alarm.generation
	}
	return resets
}

type fakeAlarm struct {
	clock      *FakeClock
	c          chan time.Time
	deadline   time.Time
	armed      bool
	generation int
}

func (a *fakeAlarm) C() <-chan time.Time {
	return a.c
}

func (a *fakeAlarm) Reset(d time.Duration) {
	a.clock.mutex.Lock()
	defer a.clock.mutex.Unlock()

	// Drop a tick that fired but wasn't received yet
	select {
	case <-a.c:
	default:
	}

	a.deadline = a.clock.now.Add(d)
	a.armed = true
	a.generation++
	a.clock.cond.Broadcast()
}

func (a *fakeAlarm) Stop() {
	a.clock.mutex.Lock()
	defer a.clock.mutex.Unlock()
	a.armed = false
	a.clock.cond.Broadcast()
}
