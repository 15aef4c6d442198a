package livestatus

import (
	"sync"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Store holds the three projections plus connection and UI flags.
// Writers run on the loop; Snapshot may be called from any goroutine.
// Every write replaces a whole value derived from the previous one.
// Fields are ordered to minimize memory padding.
type Store struct {
	clock        domain.Clock
	lastReload   *domain.ReloadResult
	tasks        map[string]domain.TaskRecord
	listeners    map[int]func(domain.Snapshot)
	cache        domain.CacheStatus
	order        []string
	ordering     domain.OrderingPolicy
	conn         domain.ConnectionState
	queue        domain.QueueStatus
	nextListener int
	mu           sync.RWMutex
	queueWritten bool
	cacheWritten bool
	generating   bool
}

// NewStore creates an empty store.
func NewStore(clock domain.Clock, ordering domain.OrderingPolicy) *Store {
	if ordering == "" {
		ordering = domain.OrderLastWriteWins
	}
	return &Store{
		clock:     clock,
		ordering:  ordering,
		conn:      domain.ConnClosed,
		tasks:     make(map[string]domain.TaskRecord),
		listeners: make(map[int]func(domain.Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the loop and must not block. Returns an unsubscribe function.
func (s *Store) Subscribe(fn func(domain.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(domain.Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot returns a deep copy of every projection.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.TaskRecord, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.tasks[id].Clone())
	}
	cache := s.cache
	if cache.LastSyncTime != nil {
		t := *cache.LastSyncTime
		cache.LastSyncTime = &t
	}
	var reload *domain.ReloadResult
	if s.lastReload != nil {
		r := *s.lastReload
		reload = &r
	}
	return domain.Snapshot{
		TakenAt:    s.clock.Now(),
		Queue:      s.queue,
		Cache:      cache,
		Tasks:      tasks,
		Connection: s.conn,
		Generating: s.generating,
		LastReload: reload,
	}
}

// SetQueue replaces the queue projection.
func (s *Store) SetQueue(q domain.QueueStatus) {
	s.mu.Lock()
	s.queue = q
	s.queueWritten = true
	s.mu.Unlock()
	s.notify()
}

// SeedQueue applies q only if nothing has written the queue yet.
func (s *Store) SeedQueue(q domain.QueueStatus) bool {
	s.mu.Lock()
	if s.queueWritten {
		s.mu.Unlock()
		return false
	}
	s.queue = q
	s.queueWritten = true
	s.mu.Unlock()
	s.notify()
	return true
}

// SetCache replaces the cache projection.
func (s *Store) SetCache(c domain.CacheStatus) {
	s.mu.Lock()
	s.cache = c
	s.cacheWritten = true
	s.mu.Unlock()
	s.notify()
}

// SeedCache applies c only if nothing has written the cache yet.
func (s *Store) SeedCache(c domain.CacheStatus) bool {
	s.mu.Lock()
	if s.cacheWritten {
		s.mu.Unlock()
		return false
	}
	s.cache = c
	s.cacheWritten = true
	s.mu.Unlock()
	s.notify()
	return true
}

// SetConnection records the push channel state.
func (s *Store) SetConnection(state domain.ConnectionState) {
	s.mu.Lock()
	if s.conn == state {
		s.mu.Unlock()
		return
	}
	s.conn = state
	s.mu.Unlock()
	s.notify()
}

// SetGenerating sets the "currently generating" UI flag.
func (s *Store) SetGenerating(v bool) {
	s.mu.Lock()
	if s.generating == v {
		s.mu.Unlock()
		return
	}
	s.generating = v
	s.mu.Unlock()
	s.notify()
}

// SetReload records the outcome of a record list reload.
func (s *Store) SetReload(r domain.ReloadResult) {
	s.mu.Lock()
	s.lastReload = &r
	s.mu.Unlock()
	s.notify()
}

// Task returns a copy of the record with the given id.
func (s *Store) Task(id string) (domain.TaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.TaskRecord{}, false
	}
	return t.Clone(), true
}

// Len returns the number of tracked tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// CreateTask inserts the record seeded by a creation response. When a push
// event already created the record, only the fields the push channel never
// carries (kind and start time) are filled in.
func (s *Store) CreateTask(rec domain.TaskRecord) domain.TaskRecord {
	s.mu.Lock()
	cur, ok := s.tasks[rec.ID]
	if ok {
		if cur.Kind == "" {
			cur.Kind = rec.Kind
		}
		if cur.StartTime == nil {
			cur.StartTime = rec.StartTime
		}
		rec = cur
	} else {
		s.order = append(s.order, rec.ID)
	}
	s.tasks[rec.ID] = rec
	out := rec.Clone()
	s.mu.Unlock()
	s.notify()
	return out
}

// UpsertFromPush applies a push update: status, message, position and name
// are replaced, start time and kind are kept. Unknown ids create a minimal
// record. Returns false when the ordering policy rejected the update.
func (s *Store) UpsertFromPush(u domain.TaskStatusUpdate) (domain.TaskRecord, bool) {
	s.mu.Lock()
	cur, ok := s.tasks[u.ID]
	if ok && s.stale(cur, u.Revision) {
		s.mu.Unlock()
		return cur.Clone(), false
	}
	next := cur
	if !ok {
		next = domain.TaskRecord{ID: u.ID}
		s.order = append(s.order, u.ID)
	}
	next.Status = u.Status
	next.Message = u.Message
	next.Position = u.Position
	if u.Name != "" {
		next.Name = u.Name
	}
	next.Revision = maxRevision(cur.Revision, u.Revision)
	s.tasks[u.ID] = next
	out := next.Clone()
	s.mu.Unlock()
	s.notify()
	return out, true
}

// MergeFromPoll applies a polled status and message to a tracked record.
// Returns false when the record is gone or the update was rejected.
func (s *Store) MergeFromPoll(id string, status domain.TaskStatus, message string, revision int64) (domain.TaskRecord, bool) {
	s.mu.Lock()
	cur, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return domain.TaskRecord{}, false
	}
	if s.stale(cur, revision) {
		s.mu.Unlock()
		return cur.Clone(), false
	}
	cur.Status = status
	cur.Message = message
	cur.Revision = maxRevision(cur.Revision, revision)
	s.tasks[id] = cur
	out := cur.Clone()
	s.mu.Unlock()
	s.notify()
	return out, true
}

// RemoveTask deletes a record. Returns false if it was not tracked.
func (s *Store) RemoveTask(id string) bool {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return true
}

// stale reports whether an update carrying revision must be dropped.
// Caller holds the lock.
func (s *Store) stale(cur domain.TaskRecord, revision int64) bool {
	if s.ordering != domain.OrderRevision {
		return false
	}
	return revision > 0 && revision < cur.Revision
}

func maxRevision(a, b int64) int64 {
	if b > a {
		return b
	}
	return a
}
