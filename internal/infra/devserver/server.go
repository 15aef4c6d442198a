// Package devserver is a local stand-in for the decision record backend.
// It serves the REST endpoints and the push channel, and moves submitted
// tasks through queued, progress and a terminal status on a timer.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/livestatus"
)

// Options configure the simulation.
type Options struct {
	Logger domain.Logger
	Clock  domain.Clock
	// StepInterval is how often running tasks advance.
	StepInterval time.Duration
	// Steps is the number of progress steps before a task finishes.
	Steps int
	// FailEvery makes every n-th submitted task fail. Zero disables failures.
	FailEvery int
	// Workers is how many tasks run at once; the rest wait in the queue.
	Workers int
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = domain.NopLogger{}
	}
	if o.Clock == nil {
		o.Clock = domain.RealClock{}
	}
	if o.StepInterval <= 0 {
		o.StepInterval = time.Second
	}
	if o.Steps <= 0 {
		o.Steps = 3
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
}

// simTask is one simulated backend task.
type simTask struct {
	id       string
	name     string
	kind     domain.TaskKind
	status   domain.TaskStatus
	message  string
	step     int
	fail     bool
	revision int64
}

// client is one connected push subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is the simulated backend.
// Fields are ordered to minimize memory padding.
type Server struct {
	lastSync  time.Time
	clients   map[*client]struct{}
	tasks     map[string]*simTask
	upgrader  websocket.Upgrader
	order     []string
	decisions []map[string]any
	opts      Options
	submitted int
	mu        sync.Mutex
}

// New creates a Server.
func New(opts Options) *Server {
	opts.applyDefaults()
	return &Server{
		opts:     opts,
		lastSync: opts.Clock.Now(),
		clients:  make(map[*client]struct{}),
		tasks:    make(map[string]*simTask),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the REST API and push endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get(domain.DefaultPushPath, s.handlePush)
	r.Route("/api", func(r chi.Router) {
		r.Get("/queue/status", s.handleQueueStatus)
		r.Get("/cache/status", s.handleCacheStatus)
		r.Get("/decisions", s.handleDecisions)
		r.Get("/{kind}/status/{task_id}", s.handleTaskStatus)
		r.Post("/{kind}", s.handleSubmit)
	})
	return r
}

// PushHandler serves only the push endpoint, for the separate LAN port.
func (s *Server) PushHandler() http.Handler {
	r := chi.NewRouter()
	r.Get(domain.DefaultPushPath, s.handlePush)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	q := s.queueLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"is_rebuilding":  s.rebuildingLocked(),
		"last_sync_time": s.lastSync.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]map[string]any{}, s.decisions...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// handleTaskStatus serves the kind-specific status endpoint. Refinement
// tasks are reported by the generation endpoint.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	kind := domain.TaskKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "task_id")

	s.mu.Lock()
	t, ok := s.tasks[id]
	var resp domain.TaskStatusResponse
	if ok {
		resp = domain.TaskStatusResponse{Status: t.status, Message: t.message, Revision: t.revision}
		ok = statusEndpointServes(kind, t.kind)
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Task not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusEndpointServes(endpoint, kind domain.TaskKind) bool {
	if kind == domain.KindRefinement {
		kind = domain.KindGeneration
	}
	return endpoint == kind
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": err.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || (len(body) > 0 && !json.Valid(body)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON body"})
		return
	}
	var fields map[string]any
	_ = json.Unmarshal(body, &fields)

	created := s.Submit(kind, titleOf(fields))
	writeJSON(w, http.StatusAccepted, created)
}

func titleOf(fields map[string]any) string {
	for _, key := range []string{"title", "name", "topic"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Submit queues a new task and returns its creation response.
func (s *Server) Submit(kind domain.TaskKind, name string) domain.TaskCreated {
	s.mu.Lock()
	s.submitted++
	t := &simTask{
		id:       uuid.NewString(),
		name:     name,
		kind:     kind,
		status:   domain.StatusQueued,
		message:  "Task queued",
		fail:     s.opts.FailEvery > 0 && s.submitted%s.opts.FailEvery == 0,
		revision: 1,
	}
	if t.name == "" {
		t.name = fmt.Sprintf("%s #%d", kind, s.submitted)
	}
	s.tasks[t.id] = t
	s.order = append(s.order, t.id)
	msgs := [][]byte{s.taskMessageLocked(t), s.queueMessageLocked()}
	s.mu.Unlock()

	s.opts.Logger.Info(t.id, "devserver", fmt.Sprintf("submitted %s task", kind))
	s.broadcast(msgs...)
	return domain.TaskCreated{TaskID: t.id, Status: t.status, Message: t.message}
}

// Step advances the simulation once: running tasks move one step and
// free workers pick up queued tasks.
func (s *Server) Step() {
	s.mu.Lock()
	var msgs [][]byte
	running := 0
	for _, id := range s.order {
		t := s.tasks[id]
		if t.status != domain.StatusProgress {
			continue
		}
		t.step++
		t.revision++
		switch {
		case t.step < s.opts.Steps:
			t.message = fmt.Sprintf("Step %d/%d", t.step+1, s.opts.Steps)
			running++
		case t.fail:
			t.status = domain.StatusFailed
			t.message = "Simulated failure"
		default:
			t.status = domain.StatusCompleted
			t.message = "Done"
			if t.kind.ProducesRecords() {
				s.decisions = append(s.decisions, map[string]any{"id": len(s.decisions) + 1, "title": t.name, "task_id": t.id})
				s.lastSync = s.opts.Clock.Now()
			}
		}
		msgs = append(msgs, s.taskMessageLocked(t))
	}
	for _, id := range s.order {
		if running >= s.opts.Workers {
			break
		}
		t := s.tasks[id]
		if t.status != domain.StatusQueued {
			continue
		}
		t.status = domain.StatusProgress
		t.message = fmt.Sprintf("Step 1/%d", s.opts.Steps)
		t.revision++
		running++
		msgs = append(msgs, s.taskMessageLocked(t))
	}
	for i, t := range s.queuedLocked() {
		pos := i + 1
		msgs = append(msgs, s.positionMessageLocked(t, pos))
	}
	if len(msgs) > 0 {
		msgs = append(msgs, s.queueMessageLocked())
	}
	s.mu.Unlock()

	s.broadcast(msgs...)
}

// Run steps the simulation until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Server) queuedLocked() []*simTask {
	var out []*simTask
	for _, id := range s.order {
		if t := s.tasks[id]; t.status == domain.StatusQueued {
			out = append(out, t)
		}
	}
	return out
}

func (s *Server) queueLocked() domain.QueueStatus {
	q := domain.QueueStatus{WorkersOnline: s.opts.Workers}
	for _, t := range s.tasks {
		switch t.status {
		case domain.StatusQueued:
			q.Pending++
		case domain.StatusProgress:
			q.Active++
		}
	}
	q.Total = q.Pending + q.Active
	return q
}

func (s *Server) rebuildingLocked() bool {
	for _, t := range s.tasks {
		if t.status == domain.StatusProgress && t.kind.ProducesRecords() {
			return true
		}
	}
	return false
}

func (s *Server) queueMessageLocked() []byte {
	q := s.queueLocked()
	b, _ := json.Marshal(livestatus.QueueStatusMessage{
		Type:          livestatus.MsgQueueStatus,
		TotalTasks:    q.Total,
		ActiveTasks:   q.Active,
		PendingTasks:  q.Pending,
		WorkersOnline: q.WorkersOnline,
	})
	return b
}

func (s *Server) taskMessageLocked(t *simTask) []byte {
	return s.positionMessageLocked(t, 0)
}

func (s *Server) positionMessageLocked(t *simTask, pos int) []byte {
	m := livestatus.TaskStatusMessage{
		Type:     livestatus.MsgTaskStatus,
		TaskID:   t.id,
		TaskName: t.name,
		Status:   t.status,
		Message:  t.message,
		Revision: t.revision,
	}
	if pos > 0 {
		m.Position = &pos
	}
	b, _ := json.Marshal(m)
	return b
}
