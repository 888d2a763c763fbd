package editor

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Scheduling: cancellable delayed tasks, one handle per entity
// ─────────────────────────────────────────────────────────────

// Timer is a scheduled task that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Implementations may call f on any
// goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock schedules on real time.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer keeps at most one pending task per key. Scheduling a key that
// is already pending replaces the task and restarts the quiet period.
type Debouncer struct {
	mu      sync.Mutex
	sched   Scheduler
	seq     uint64
	pending map[string]debounceEntry
}

type debounceEntry struct {
	seq   uint64
	timer Timer
}

func NewDebouncer(s Scheduler) *Debouncer {
	if s == nil {
		s = WallClock{}
	}
	return &Debouncer{sched: s, pending: make(map[string]debounceEntry)}
}

// Schedule arms f for key after delay, cancelling any earlier task for key.
func (d *Debouncer) Schedule(key string, delay time.Duration, f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}
	d.seq++
	seq := d.seq
	timer := d.sched.AfterFunc(delay, func() {
		d.mu.Lock()
		e, ok := d.pending[key]
		// A Stop that lost the race against the timer leaves a stale
		// callback behind; the sequence number tells it apart.
		if !ok || e.seq != seq {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		f()
	})
	d.pending[key] = debounceEntry{seq: seq, timer: timer}
}

// Cancel drops the pending task for key. It reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// CancelPrefix drops every pending task whose key starts with prefix.
func (d *Debouncer) CancelPrefix(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, e := range d.pending {
		if strings.HasPrefix(key, prefix) {
			e.timer.Stop()
			delete(d.pending, key)
		}
	}
}

// CancelAll drops every pending task.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether a task for key is waiting to run.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// ── ManualScheduler ────────────────────────────────────────

// ManualScheduler is a Scheduler driven by Advance instead of the wall
// clock. Due tasks run synchronously on the caller of Advance, in due-time
// order. It is meant for tests.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	due     time.Duration
	seq     uint64
	f       func()
	stopped bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{s: s, due: s.now + d, seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every task that became
// due, including tasks scheduled by those tasks within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			if target > s.now {
				s.now = target
			}
			s.mu.Unlock()
			return
		}
		next.stopped = true
		if next.due > s.now {
			s.now = next.due
		}
		s.mu.Unlock()
		next.f()
	}
}

// Scheduled returns how many tasks are waiting.
func (s *ManualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDueLocked(target time.Duration) *manualTask {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due != s.tasks[j].due {
			return s.tasks[i].due < s.tasks[j].due
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})
	if len(s.tasks) == 0 || s.tasks[0].due > target {
		return nil
	}
	return s.tasks[0]
}
