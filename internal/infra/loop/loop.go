// Package loop implements domain.Scheduler on a single goroutine.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

var _ domain.Scheduler = (*Loop)(nil)

// Loop runs posted callbacks one at a time on the goroutine that called Run.
// Fields are ordered to minimize memory padding.
type Loop struct {
	clock   domain.Clock
	wake    chan struct{}
	done    chan struct{}
	queue   []func()
	workers sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// New creates a Loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		clock: domain.RealClock{},
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Now returns the current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn. Posting after Stop is a no-op.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type timer struct {
	t     *time.Timer
	state atomic.Int32
}

// Stop cancels the callback. Once Stop returns true the callback never runs.
func (t *timer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.t.Stop()
	return true
}

// AfterFunc posts fn once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) domain.Timer {
	tm := &timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return tm
}

// Spawn runs work on its own goroutine and posts the continuation.
func (l *Loop) Spawn(work func() func()) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		if cont := work(); cont != nil {
			l.Post(cont)
		}
	}()
}

// Run processes callbacks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

// Stop makes Run return once the current callback finishes. Callbacks
// still queued are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.queue = nil
	close(l.done)
}

// Wait blocks until every spawned worker has returned.
func (l *Loop) Wait() {
	l.workers.Wait()
}
