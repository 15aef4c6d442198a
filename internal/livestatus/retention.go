package livestatus

import (
	"fmt"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Retention evicts finished tasks from the store after a delay.
//
// All methods must be called on the scheduler loop.
type Retention struct {
	sched     domain.Scheduler
	store     *Store
	logger    domain.Logger
	timers    map[string]domain.Timer
	processed map[string]struct{}
	delay     time.Duration
}

// NewRetention creates a Retention with the given eviction delay.
func NewRetention(sched domain.Scheduler, store *Store, logger domain.Logger, delay time.Duration) *Retention {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	if delay <= 0 {
		delay = time.Duration(domain.DefaultDismissDelaySec) * time.Second
	}
	return &Retention{
		sched:     sched,
		store:     store,
		logger:    logger,
		timers:    make(map[string]domain.Timer),
		processed: make(map[string]struct{}),
		delay:     delay,
	}
}

// Delay returns the current eviction delay.
func (r *Retention) Delay() time.Duration {
	return r.delay
}

// SetDelay changes the delay for evictions scheduled from now on.
func (r *Retention) SetDelay(d time.Duration) {
	if d > 0 {
		r.delay = d
	}
}

// Observe schedules eviction the first time rec is seen in a terminal status.
func (r *Retention) Observe(rec domain.TaskRecord) {
	if !rec.Status.IsTerminal() {
		return
	}
	if _, done := r.processed[rec.ID]; done {
		return
	}
	r.processed[rec.ID] = struct{}{}

	id := rec.ID
	r.logger.Debug(id, "retention", fmt.Sprintf("%s; evicting in %s", rec.Status, r.delay))
	r.timers[id] = r.sched.AfterFunc(r.delay, func() {
		delete(r.timers, id)
		delete(r.processed, id)
		if r.store.RemoveTask(id) {
			r.logger.Debug(id, "retention", "evicted")
		}
	})
}

// Scheduled reports whether an eviction is pending for id.
func (r *Retention) Scheduled(id string) bool {
	_, ok := r.timers[id]
	return ok
}

// Dismiss removes id immediately and cancels its pending eviction.
// Returns false if the record was not tracked.
func (r *Retention) Dismiss(id string) bool {
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	delete(r.processed, id)
	return r.store.RemoveTask(id)
}

// StopAll cancels every pending eviction.
func (r *Retention) StopAll() {
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
