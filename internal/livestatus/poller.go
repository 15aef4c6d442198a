package livestatus

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// FetchFailedMessage is the message shown when a status fetch itself fails.
const FetchFailedMessage = "Failed to fetch task status"

// PollerHooks receives poller outcomes. Both hooks run on the loop.
type PollerHooks struct {
	// OnTask is called with every record the poller changed.
	OnTask func(domain.TaskRecord)
	// OnSettled is called once when a loop stops on a terminal status.
	OnSettled func(id string, kind domain.TaskKind, status domain.TaskStatus)
}

// Poller drives tracked tasks to a terminal status by fetching their
// status repeatedly. One loop runs per task id. A loop only stops on a
// terminal status (or teardown); there is no retry limit or timeout.
//
// All methods must be called on the scheduler loop.
type Poller struct {
	sched    domain.Scheduler
	fetcher  domain.TaskStatusFetcher
	store    *Store
	logger   domain.Logger
	ctx      context.Context
	loops    map[string]*pollLoop
	hooks    PollerHooks
	interval time.Duration
}

type pollLoop struct {
	timer  domain.Timer
	cancel context.CancelFunc
	id     string
	kind   domain.TaskKind
	polls  int
}

// NewPoller creates a Poller. ctx bounds every fetch it issues.
func NewPoller(ctx context.Context, sched domain.Scheduler, fetcher domain.TaskStatusFetcher, store *Store, logger domain.Logger, interval time.Duration, hooks PollerHooks) *Poller {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	if interval <= 0 {
		interval = time.Duration(domain.DefaultPollIntervalMs) * time.Millisecond
	}
	return &Poller{
		sched:    sched,
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
		ctx:      ctx,
		loops:    make(map[string]*pollLoop),
		hooks:    hooks,
		interval: interval,
	}
}

// Start begins polling id. Returns false if a loop for id is already running.
// The first fetch is issued immediately.
func (p *Poller) Start(id string, kind domain.TaskKind) bool {
	if _, ok := p.loops[id]; ok {
		return false
	}
	l := &pollLoop{id: id, kind: kind}
	p.loops[id] = l
	p.logger.Debug(id, "poller", fmt.Sprintf("polling %s task every %s", kind, p.interval))
	p.fetch(l)
	return true
}

// Active reports whether a loop for id is running.
func (p *Poller) Active(id string) bool {
	_, ok := p.loops[id]
	return ok
}

// Stop cancels the loop for id, if any.
func (p *Poller) Stop(id string) {
	l, ok := p.loops[id]
	if !ok {
		return
	}
	p.halt(l)
}

// StopAll cancels every loop.
func (p *Poller) StopAll() {
	for _, l := range p.loops {
		p.halt(l)
	}
}

func (p *Poller) halt(l *pollLoop) {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	delete(p.loops, l.id)
}

func (p *Poller) fetch(l *pollLoop) {
	ctx, cancel := context.WithCancel(p.ctx)
	l.cancel = cancel
	l.polls++
	p.sched.Spawn(func() func() {
		resp, err := p.fetcher.FetchTaskStatus(ctx, l.id, l.kind)
		return func() {
			cancel()
			p.handle(l, resp, err)
		}
	})
}

func (p *Poller) handle(l *pollLoop, resp *domain.TaskStatusResponse, err error) {
	// The loop was stopped while the fetch was in flight.
	if p.loops[l.id] != l {
		return
	}
	l.cancel = nil

	if err != nil {
		p.logger.Warn(l.id, "poller", "status fetch failed: "+err.Error())
		rec, ok := p.store.MergeFromPoll(l.id, domain.StatusFailed, FetchFailedMessage, 0)
		if ok && p.hooks.OnTask != nil {
			p.hooks.OnTask(rec)
		}
		p.settle(l, domain.StatusFailed)
		return
	}

	rec, ok := p.store.MergeFromPoll(l.id, resp.Status, resp.DisplayMessage(), resp.Revision)
	if ok && p.hooks.OnTask != nil {
		p.hooks.OnTask(rec)
	}

	if resp.Status.IsTerminal() {
		p.logger.Info(l.id, "poller", fmt.Sprintf("task %s after %d polls", resp.Status, l.polls))
		p.settle(l, resp.Status)
		return
	}

	l.timer = p.sched.AfterFunc(p.interval, func() {
		if p.loops[l.id] != l {
			return
		}
		l.timer = nil
		p.fetch(l)
	})
}

func (p *Poller) settle(l *pollLoop, status domain.TaskStatus) {
	delete(p.loops, l.id)
	if p.hooks.OnSettled != nil {
		p.hooks.OnSettled(l.id, l.kind, status)
	}
}
