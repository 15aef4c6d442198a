package domain

import "time"

// QueueStatus holds aggregate backend queue counters.
type QueueStatus struct {
	Total         int `json:"total_tasks" yaml:"total_tasks"`
	Active        int `json:"active_tasks" yaml:"active_tasks"`
	Pending       int `json:"pending_tasks" yaml:"pending_tasks"`
	WorkersOnline int `json:"workers_online" yaml:"workers_online"`
}

// CacheStatus reports whether the backend is rebuilding its record cache.
type CacheStatus struct {
	LastSyncTime *time.Time `json:"last_sync_time" yaml:"last_sync_time"`
	IsRebuilding bool       `json:"is_rebuilding" yaml:"is_rebuilding"`
}

// ConnectionState is the lifecycle state of the push channel.
type ConnectionState string

const (
	ConnConnecting ConnectionState = "connecting"
	ConnOpen       ConnectionState = "open"
	ConnClosed     ConnectionState = "closed"
)

// Display returns a human-readable representation of the state.
func (s ConnectionState) Display() string {
	switch s {
	case ConnConnecting:
		return "Connecting"
	case ConnOpen:
		return "Live"
	case ConnClosed:
		return "Disconnected"
	default:
		return string(s)
	}
}

// ReloadResult describes the last decision record list reload.
type ReloadResult struct {
	At    time.Time
	Err   error
	Count int
}

// Snapshot is a read-only copy of every projection at one point in time.
// Fields are ordered to minimize memory padding.
type Snapshot struct {
	TakenAt    time.Time
	Cache      CacheStatus
	LastReload *ReloadResult
	Tasks      []TaskRecord // Creation order
	Connection ConnectionState
	Queue      QueueStatus
	Generating bool
}

// Task returns the record with the given id.
func (s Snapshot) Task(id string) (TaskRecord, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskRecord{}, false
}
