package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

var _ domain.Scheduler = (*FakeScheduler)(nil)

// FakeScheduler is a virtual-time domain.Scheduler. Nothing runs until the
// test calls Flush or Advance; callbacks then run on the calling goroutine
// in due-time order, ties broken by scheduling order.
type FakeScheduler struct {
	now     time.Time
	pending []*fakeTimer
	mu      sync.Mutex
	seq     uint64

	// SpawnDelay holds Spawn continuations back by this much virtual time,
	// simulating slow responses.
	SpawnDelay time.Duration
}

type fakeTimer struct {
	due     time.Time
	fn      func()
	s       *FakeScheduler
	seq     uint64
	delay   time.Duration
	done    bool
	visible bool // false for Post/Spawn continuations
}

// NewFakeScheduler creates a scheduler whose clock starts at start.
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{now: start}
}

// Now returns the virtual time.
func (s *FakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Post queues fn at the current virtual time.
func (s *FakeScheduler) Post(fn func()) {
	s.add(0, fn, false)
}

// AfterFunc queues fn at now+d.
func (s *FakeScheduler) AfterFunc(d time.Duration, fn func()) domain.Timer {
	return s.add(d, fn, true)
}

// Spawn runs work immediately and queues its continuation.
func (s *FakeScheduler) Spawn(work func() func()) {
	if cont := work(); cont != nil {
		s.add(s.SpawnDelay, cont, false)
	}
}

func (s *FakeScheduler) add(d time.Duration, fn func(), visible bool) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{
		due:     s.now.Add(d),
		fn:      fn,
		s:       s,
		seq:     s.seq,
		delay:   d,
		visible: visible,
	}
	s.pending = append(s.pending, t)
	return t
}

// Stop cancels the timer if it has not run yet.
func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.s.remove(t)
	return true
}

func (s *FakeScheduler) remove(t *fakeTimer) {
	for i, p := range s.pending {
		if p == t {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// next pops the earliest timer due at or before limit.
func (s *FakeScheduler) next(limit time.Time) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.pending, func(i, j int) bool {
		a, b := s.pending[i], s.pending[j]
		if !a.due.Equal(b.due) {
			return a.due.Before(b.due)
		}
		return a.seq < b.seq
	})
	if len(s.pending) == 0 || s.pending[0].due.After(limit) {
		return nil
	}
	t := s.pending[0]
	s.pending = s.pending[1:]
	t.done = true
	if t.due.After(s.now) {
		s.now = t.due
	}
	return t
}

// Advance moves virtual time forward by d, running every callback that
// becomes due, including ones scheduled by callbacks along the way.
func (s *FakeScheduler) Advance(d time.Duration) {
	limit := s.Now().Add(d)
	for {
		t := s.next(limit)
		if t == nil {
			break
		}
		t.fn()
	}
	s.mu.Lock()
	if limit.After(s.now) {
		s.now = limit
	}
	s.mu.Unlock()
}

// Flush runs everything due now without moving the clock.
func (s *FakeScheduler) Flush() {
	s.Advance(0)
}

// PendingTimers returns the delays of timers created with AfterFunc that
// have neither fired nor been stopped, in due order.
func (s *FakeScheduler) PendingTimers() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	timers := make([]*fakeTimer, 0, len(s.pending))
	for _, t := range s.pending {
		if t.visible {
			timers = append(timers, t)
		}
	}
	sort.SliceStable(timers, func(i, j int) bool { return timers[i].due.Before(timers[j].due) })
	out := make([]time.Duration, len(timers))
	for i, t := range timers {
		out[i] = t.delay
	}
	return out
}

// PendingCount returns the number of live AfterFunc timers.
func (s *FakeScheduler) PendingCount() int {
	return len(s.PendingTimers())
}
