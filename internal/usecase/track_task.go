package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/template"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// LiveSession is the part of a live status session TrackTask drives.
type LiveSession interface {
	Mount()
	Teardown()
	Track(kind domain.TaskKind, created domain.TaskCreated)
	Subscribe(fn func(domain.Snapshot)) func()
}

// TrackTaskInput contains the parameters for tracking a task.
type TrackTaskInput struct {
	CommandTemplate string             // Command template to execute on status change
	Created         domain.TaskCreated // Task to track, as returned by creation or a status read
	Kind            domain.TaskKind
	Timeout         time.Duration // Zero waits forever
}

// TrackTaskOutput contains the last observed state of the task.
type TrackTaskOutput struct {
	Final   domain.TaskRecord
	Changes int // Status changes observed
}

// TrackTask follows one task through a live session until it finishes.
// Fields are ordered to minimize memory padding.
type TrackTask struct {
	session  LiveSession
	executor domain.CommandExecutor
	clock    domain.Clock
	stdout   io.Writer
	stderr   io.Writer
}

// NewTrackTask creates a new TrackTask use case.
func NewTrackTask(session LiveSession, executor domain.CommandExecutor, clock domain.Clock, stdout, stderr io.Writer) *TrackTask {
	return &TrackTask{
		session:  session,
		executor: executor,
		clock:    clock,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// CommandData holds data for command template expansion.
type CommandData struct {
	TaskID    string
	Kind      string
	OldStatus string
	NewStatus string
	Message   string
}

// Execute tracks the task. It returns nil when the task completes,
// ErrTaskFailed or ErrTaskRevoked when it ends otherwise, and nil on
// Ctrl+C.
func (uc *TrackTask) Execute(ctx context.Context, in TrackTaskInput) (*TrackTaskOutput, error) {
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, in.Kind)
	}
	if in.Created.TaskID == "" {
		return nil, domain.ErrEmptyTaskID
	}
	var tmpl *template.Template
	if in.CommandTemplate != "" {
		var err error
		tmpl, err = template.New("command").Parse(in.CommandTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse template: %w", err)
		}
	}

	// Already finished: report without opening a session.
	if in.Created.Status.IsTerminal() {
		out := &TrackTaskOutput{Final: domain.TaskRecord{
			ID:      in.Created.TaskID,
			Kind:    in.Kind,
			Status:  in.Created.Status,
			Message: in.Created.Message,
		}}
		return out, outcome(out.Final)
	}

	feed := newRecordFeed(in.Created.TaskID)
	unsubscribe := uc.session.Subscribe(feed.observe)
	defer unsubscribe()

	uc.session.Mount()
	defer uc.session.Teardown()
	uc.session.Track(in.Kind, in.Created)

	var timeout <-chan time.Time
	if in.Timeout > 0 {
		timer := time.NewTimer(in.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	out := &TrackTaskOutput{}
	previous := in.Created.Status
	for {
		select {
		case <-ctx.Done():
			// Ctrl+C (context.Canceled) is a normal exit, not an error
			if errors.Is(ctx.Err(), context.Canceled) {
				return out, nil
			}
			return nil, ctx.Err()
		case <-timeout:
			return out, fmt.Errorf("task %s still %s after %s", in.Created.TaskID, previous, in.Timeout)
		case <-feed.ready:
			for _, rec := range feed.drain() {
				out.Final = rec
				uc.report(rec)
				if rec.Status != previous {
					out.Changes++
					if tmpl != nil {
						data := CommandData{
							TaskID:    rec.ID,
							Kind:      string(in.Kind),
							OldStatus: string(previous),
							NewStatus: string(rec.Status),
							Message:   rec.Message,
						}
						if err := uc.executeCommand(ctx, tmpl, data); err != nil {
							return out, fmt.Errorf("execute command: %w", err)
						}
					}
					previous = rec.Status
				}
				if rec.Status.IsTerminal() {
					return out, outcome(rec)
				}
			}
		}
	}
}

func outcome(rec domain.TaskRecord) error {
	switch rec.Status {
	case domain.StatusFailed:
		return fmt.Errorf("%w: %s", domain.ErrTaskFailed, rec.Message)
	case domain.StatusRevoked:
		return domain.ErrTaskRevoked
	default:
		return nil
	}
}

// report prints one line per observed change.
func (uc *TrackTask) report(rec domain.TaskRecord) {
	elapsed := "--:--"
	if d, ok := rec.Elapsed(uc.clock.Now()); ok {
		elapsed = formatClock(d)
	}
	line := fmt.Sprintf("[%s] %-9s", elapsed, rec.Status.Display())
	if rec.Message != "" {
		line += " " + rec.Message
	}
	_, _ = fmt.Fprintln(uc.stdout, line)
}

func formatClock(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// executeCommand executes the command template with the given data.
func (uc *TrackTask) executeCommand(ctx context.Context, tmpl *template.Template, data CommandData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return uc.executor.ExecuteWithContext(ctx, domain.NewShellCommand(buf.String(), ""), uc.stdout, uc.stderr)
}

// recordFeed collects changes of one record from session snapshots. The
// session calls observe on its loop, so observe never blocks.
type recordFeed struct {
	ready   chan struct{}
	id      string
	pending []domain.TaskRecord
	last    domain.TaskRecord
	mu      sync.Mutex
	seen    bool
}

func newRecordFeed(id string) *recordFeed {
	return &recordFeed{id: id, ready: make(chan struct{}, 1)}
}

func (f *recordFeed) observe(snap domain.Snapshot) {
	rec, ok := snap.Task(f.id)
	if !ok {
		return
	}
	f.mu.Lock()
	if f.seen && rec.Status == f.last.Status && rec.Message == f.last.Message {
		f.mu.Unlock()
		return
	}
	f.seen = true
	f.last = rec
	f.pending = append(f.pending, rec)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

func (f *recordFeed) drain() []domain.TaskRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}
