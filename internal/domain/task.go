// Package domain contains the core entities and ports of adr-sync.
package domain

import (
	"fmt"
	"time"
)

// TaskKind selects which backend pipeline a task belongs to.
type TaskKind string

const (
	KindAnalysis   TaskKind = "analysis"
	KindGeneration TaskKind = "generation"
	KindRefinement TaskKind = "refinement"
)

// AllKinds returns all valid task kinds.
func AllKinds() []TaskKind {
	return []TaskKind{KindAnalysis, KindGeneration, KindRefinement}
}

// ParseKind validates a kind string.
func ParseKind(s string) (TaskKind, error) {
	k := TaskKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// IsValid returns true if the kind is a known value.
func (k TaskKind) IsValid() bool {
	switch k {
	case KindAnalysis, KindGeneration, KindRefinement:
		return true
	default:
		return false
	}
}

// ProducesRecords returns true if completing a task of this kind changes
// the decision record list.
func (k TaskKind) ProducesRecords() bool {
	return k == KindGeneration || k == KindRefinement
}

// TaskRecord is the client-side view of one unit of backend work.
// Fields are ordered to minimize memory padding.
type TaskRecord struct {
	StartTime *time.Time // Captured client-side at creation; nil when first seen via push
	Position  *int       // Advisory queue position
	ID        string     // Backend-assigned identifier
	Kind      TaskKind   // Empty when the record was created from a push event
	Name      string     // Backend task name, if reported
	Status    TaskStatus
	Message   string // Last status text
	Revision  int64  // Optional ordering hint; 0 = unknown
}

// Clone returns a deep copy of the record.
func (t TaskRecord) Clone() TaskRecord {
	c := t
	if t.StartTime != nil {
		st := *t.StartTime
		c.StartTime = &st
	}
	if t.Position != nil {
		p := *t.Position
		c.Position = &p
	}
	return c
}

// Elapsed returns the time since StartTime, or false if the start is unknown.
func (t TaskRecord) Elapsed(now time.Time) (time.Duration, bool) {
	if t.StartTime == nil {
		return 0, false
	}
	d := now.Sub(*t.StartTime)
	if d < 0 {
		d = 0
	}
	return d, true
}

// TaskStatusUpdate is a status observation for a task from any source.
type TaskStatusUpdate struct {
	Position *int
	ID       string
	Name     string
	Status   TaskStatus
	Message  string
	Revision int64
}

// TaskCreated is the backend response to a task creation request.
type TaskCreated struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// TaskStatusResponse is the body returned by a kind-specific status endpoint.
type TaskStatusResponse struct {
	Status   TaskStatus `json:"status"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
	Revision int64      `json:"revision,omitempty"`
}

// DisplayMessage returns the message, falling back to the error text.
func (r TaskStatusResponse) DisplayMessage() string {
	if r.Message == "" && r.Error != "" {
		return r.Error
	}
	return r.Message
}
