package livestatus

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Deps are the collaborators a Session needs.
type Deps struct {
	Scheduler domain.Scheduler
	Dialer    domain.PushDialer
	Statuses  domain.TaskStatusFetcher
	Queue     domain.QueueStatusFetcher
	Reloader  domain.RecordReloader
	Logger    domain.Logger
}

// Options configure a Session.
type Options struct {
	PushURL string
	Sync    domain.SyncConfig
}

// Session is one client's synchronized view of backend work. It owns the
// projections and every component that writes them, from Mount until
// Teardown. Sessions share nothing, so several can run side by side.
//
// Public methods are safe from any goroutine: they post onto the loop.
type Session struct {
	deps      Deps
	ctx       context.Context
	cancel    context.CancelFunc
	store     *Store
	router    *Router
	conn      *ConnectionManager
	poller    *Poller
	retention *Retention
	bootstrap *Bootstrap
	mounted   bool
	torndown  bool
}

// NewSession wires a Session. Nothing starts until Mount.
func NewSession(deps Deps, opts Options) *Session {
	if deps.Logger == nil {
		deps.Logger = domain.NopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		store:  NewStore(deps.Scheduler, opts.Sync.Ordering),
	}
	s.retention = NewRetention(deps.Scheduler, s.store, deps.Logger, opts.Sync.DismissDelay())
	s.router = NewRouter(s.store, deps.Logger, s.taskChanged)
	s.poller = NewPoller(ctx, deps.Scheduler, deps.Statuses, s.store, deps.Logger, opts.Sync.PollInterval(), PollerHooks{
		OnTask:    s.taskChanged,
		OnSettled: s.taskSettled,
	})
	s.conn = NewConnectionManager(deps.Scheduler, deps.Dialer, deps.Logger, ConnectionOptions{
		URL:               opts.PushURL,
		KeepaliveInterval: opts.Sync.KeepaliveInterval(),
		ReconnectBase:     opts.Sync.ReconnectBase(),
		ReconnectMax:      opts.Sync.ReconnectMax(),
	}, s.store.SetConnection, s.routeMessage)
	s.bootstrap = NewBootstrap(deps.Scheduler, deps.Queue, s.store, deps.Logger, s.alive)
	return s
}

// Mount runs the bootstrap fetch and opens the push channel.
// Mount after Teardown is a no-op.
func (s *Session) Mount() {
	s.deps.Scheduler.Post(func() {
		if s.mounted || s.torndown {
			return
		}
		s.mounted = true
		s.deps.Logger.Info("", "session", "mounted")
		s.bootstrap.Run(s.ctx)
		s.conn.Connect()
	})
}

// Teardown stops every timer, cancels in-flight requests and closes the
// push channel. Responses arriving later are ignored.
func (s *Session) Teardown() {
	s.deps.Scheduler.Post(s.teardown)
}

func (s *Session) teardown() {
	if s.torndown {
		return
	}
	s.torndown = true
	s.mounted = false
	s.conn.Teardown()
	s.poller.StopAll()
	s.retention.StopAll()
	s.cancel()
	s.store.SetConnection(domain.ConnClosed)
	s.deps.Logger.Info("", "session", "torn down")
}

// Track starts tracking a task returned by a creation request: the record
// gets StartTime = now and a poll loop is started for it.
func (s *Session) Track(kind domain.TaskKind, created domain.TaskCreated) {
	s.deps.Scheduler.Post(func() {
		if !s.alive() {
			return
		}
		if created.TaskID == "" {
			s.deps.Logger.Warn("", "session", domain.ErrEmptyTaskID.Error())
			return
		}
		now := s.deps.Scheduler.Now()
		status := created.Status
		if !status.IsValid() {
			status = domain.StatusQueued
		}
		rec := s.store.CreateTask(domain.TaskRecord{
			ID:        created.TaskID,
			Kind:      kind,
			Status:    status,
			Message:   created.Message,
			StartTime: &now,
		})
		if kind.ProducesRecords() {
			s.store.SetGenerating(true)
		}
		s.deps.Logger.Info(rec.ID, "session", fmt.Sprintf("tracking %s task", kind))
		s.taskChanged(rec)
		s.poller.Start(rec.ID, kind)
	})
}

// Dismiss removes a task right away and cancels its pending eviction.
// Unknown ids are ignored.
func (s *Session) Dismiss(id string) {
	s.deps.Scheduler.Post(func() {
		if !s.alive() {
			return
		}
		if s.retention.Dismiss(id) {
			s.deps.Logger.Debug(id, "session", "dismissed")
		}
	})
}

// RefreshCache refetches the cache status and replaces the projection.
func (s *Session) RefreshCache() {
	s.deps.Scheduler.Post(func() {
		if !s.alive() {
			return
		}
		ctx := s.ctx
		s.deps.Scheduler.Spawn(func() func() {
			c, err := s.deps.Queue.FetchCacheStatus(ctx)
			return func() {
				if !s.alive() {
					return
				}
				if err != nil {
					s.deps.Logger.Warn("", "session", "cache refresh: "+err.Error())
					return
				}
				s.store.SetCache(*c)
			}
		})
	})
}

// SetDismissDelay changes the eviction delay for tasks finishing from now on.
func (s *Session) SetDismissDelay(d time.Duration) {
	s.deps.Scheduler.Post(func() {
		if s.torndown {
			return
		}
		s.retention.SetDelay(d)
		s.deps.Logger.Info("", "session", fmt.Sprintf("dismiss delay set to %s", d))
	})
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the loop and must not block.
func (s *Session) Subscribe(fn func(domain.Snapshot)) func() {
	return s.store.Subscribe(fn)
}

// Snapshot returns the current state of every projection.
func (s *Session) Snapshot() domain.Snapshot {
	return s.store.Snapshot()
}

func (s *Session) alive() bool {
	return s.mounted && !s.torndown
}

func (s *Session) routeMessage(payload []byte) {
	if !s.alive() {
		return
	}
	s.router.Route(payload)
}

func (s *Session) taskChanged(rec domain.TaskRecord) {
	if !s.alive() {
		return
	}
	s.retention.Observe(rec)
}

func (s *Session) taskSettled(id string, kind domain.TaskKind, status domain.TaskStatus) {
	if !s.alive() {
		return
	}
	if !kind.ProducesRecords() {
		return
	}
	s.store.SetGenerating(false)
	if status != domain.StatusCompleted || s.deps.Reloader == nil {
		return
	}

	s.deps.Logger.Info(id, "session", "records changed; reloading list")
	ctx := s.ctx
	s.deps.Scheduler.Spawn(func() func() {
		n, err := s.deps.Reloader.ReloadRecords(ctx)
		return func() {
			if !s.alive() {
				return
			}
			if err != nil {
				s.deps.Logger.Warn(id, "session", "reload records: "+err.Error())
			}
			s.store.SetReload(domain.ReloadResult{At: s.deps.Scheduler.Now(), Count: n, Err: err})
		}
	})
}
