// Package livestatus keeps a client's view of backend work in sync with the
// server through a push channel, per-task polling and a one-shot bootstrap.
//
// Every mutation runs on the domain.Scheduler loop; components never lock
// each other and never touch state from I/O goroutines.
package livestatus

import "github.com/runoshun/adr-sync/internal/domain"

// MessageType is the discriminant of a push payload.
type MessageType string

const (
	MsgQueueStatus MessageType = "queue_status"
	MsgTaskStatus  MessageType = "task_status"
)

// KeepaliveToken is the liveness frame sent while the channel is open.
const KeepaliveToken = "ping"

// QueueStatusMessage is the queue_status push payload.
type QueueStatusMessage struct {
	Type          MessageType `json:"type"`
	TotalTasks    int         `json:"total_tasks"`
	ActiveTasks   int         `json:"active_tasks"`
	PendingTasks  int         `json:"pending_tasks"`
	WorkersOnline int         `json:"workers_online"`
}

// QueueStatus converts the payload into the projection value.
func (m QueueStatusMessage) QueueStatus() domain.QueueStatus {
	return domain.QueueStatus{
		Total:         m.TotalTasks,
		Active:        m.ActiveTasks,
		Pending:       m.PendingTasks,
		WorkersOnline: m.WorkersOnline,
	}
}

// TaskStatusMessage is the task_status push payload.
type TaskStatusMessage struct {
	Position *int              `json:"position"`
	Type     MessageType       `json:"type"`
	TaskID   string            `json:"task_id"`
	TaskName string            `json:"task_name"`
	Status   domain.TaskStatus `json:"status"`
	Message  string            `json:"message,omitempty"`
	Revision int64             `json:"revision,omitempty"`
}

// Update converts the payload into a task update.
func (m TaskStatusMessage) Update() domain.TaskStatusUpdate {
	return domain.TaskStatusUpdate{
		ID:       m.TaskID,
		Name:     m.TaskName,
		Status:   m.Status,
		Message:  m.Message,
		Position: m.Position,
		Revision: m.Revision,
	}
}
