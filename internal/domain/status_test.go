package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		expect bool
	}{
		{StatusQueued, false},
		{StatusProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusRevoked, true},
		{TaskStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.status.IsTerminal())
		})
	}
}

func TestTaskStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	assert.False(t, TaskStatus("done").IsValid())
	assert.False(t, TaskStatus("").IsValid())
}

func TestTaskStatus_Display(t *testing.T) {
	tests := []struct {
		status TaskStatus
		expect string
	}{
		{StatusQueued, "Queued"},
		{StatusProgress, "In Progress"},
		{StatusCompleted, "Completed"},
		{StatusFailed, "Failed"},
		{StatusRevoked, "Revoked"},
		{TaskStatus("weird"), "weird"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, tt.status.Display(), "status %s", tt.status)
	}
}
