package domain

// TaskStatus represents the lifecycle state of a backend task.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"    // Accepted, waiting for a worker
	StatusProgress  TaskStatus = "progress"  // A worker is running it
	StatusCompleted TaskStatus = "completed" // Finished successfully
	StatusFailed    TaskStatus = "failed"    // Finished with an error
	StatusRevoked   TaskStatus = "revoked"   // Cancelled on the backend
)

// AllStatuses returns all valid status values.
func AllStatuses() []TaskStatus {
	return []TaskStatus{
		StatusQueued,
		StatusProgress,
		StatusCompleted,
		StatusFailed,
		StatusRevoked,
	}
}

// IsTerminal returns true if no further transition is expected from this status.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRevoked
}

// IsValid returns true if the status is a known value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusProgress, StatusCompleted, StatusFailed, StatusRevoked:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s TaskStatus) Display() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusRevoked:
		return "Revoked"
	default:
		return string(s)
	}
}
