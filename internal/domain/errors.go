package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidKind      = errors.New("invalid task kind")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidOrdering  = errors.New("invalid ordering policy")
	ErrInvalidDeploy    = errors.New("invalid deployment mode")
	ErrEmptyTaskID      = errors.New("task id cannot be empty")
	ErrSessionClosed    = errors.New("session torn down")
	ErrChannelClosed    = errors.New("push channel closed")
	ErrConfigExists     = errors.New("config file already exists")
	ErrNoBaseURL        = errors.New("server base_url is not configured")
	ErrTaskFailed       = errors.New("task failed")
	ErrTaskRevoked      = errors.New("task revoked")
	ErrDismissDelay     = errors.New("dismiss delay out of range")
	ErrMalformedPayload = errors.New("malformed push payload")
)
