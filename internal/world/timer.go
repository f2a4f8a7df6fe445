package world

import (
	"sort"
	"time"
)

type timer struct {
	id  int
	due time.Duration
	fn  func()
}

// timerWheel holds delayed callbacks against a world-local clock. The clock
// only moves forward in Advance, so a paused or edited world holds its timers.
type timerWheel struct {
	now    time.Duration
	nextID int
	timers []*timer
}

// SetTimeout schedules fn to run once the world clock has advanced by delay.
// Returns an id for ClearTimeout.
func (w *World) SetTimeout(delay time.Duration, fn func()) int {
	w.timers.nextID++
	w.timers.timers = append(w.timers.timers, &timer{
		id:  w.timers.nextID,
		due: w.timers.now + delay,
		fn:  fn,
	})
	return w.timers.nextID
}

// ClearTimeout cancels a pending timer. Unknown ids are ignored.
func (w *World) ClearTimeout(id int) bool {
	for i, t := range w.timers.timers {
		if t.id == id {
			w.timers.timers = append(w.timers.timers[:i], w.timers.timers[i+1:]...)
			return true
		}
	}
	return false
}

// After is SetTimeout returning a cancel func.
func (w *World) After(delay time.Duration, fn func()) (cancel func()) {
	id := w.SetTimeout(delay, fn)
	return func() { w.ClearTimeout(id) }
}

// PendingTimers returns the number of scheduled callbacks.
func (w *World) PendingTimers() int { return len(w.timers.timers) }

// Clock returns the world-local time.
func (w *World) Clock() time.Duration { return w.timers.now }

// AdvanceTimers moves the world clock forward by dt and runs the callbacks
// that came due, earliest first, ties in scheduling order. Does nothing while
// editing. Callbacks scheduled by a callback run on a later advance at the earliest.
func (w *World) AdvanceTimers(dt time.Duration) int {
	if w.mode != ModePlay {
		return 0
	}
	w.timers.now += dt
	var due []*timer
	kept := w.timers.timers[:0]
	for _, t := range w.timers.timers {
		if t.due <= w.timers.now {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	w.timers.timers = kept
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}
