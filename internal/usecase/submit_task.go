// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/adr-sync/internal/domain"
)

// SubmitTaskInput contains the parameters for creating a backend task.
type SubmitTaskInput struct {
	Kind domain.TaskKind
	Body []byte // Opaque JSON request body; empty sends {}
}

// SubmitTaskOutput contains the creation response.
type SubmitTaskOutput struct {
	Created domain.TaskCreated
}

// SubmitTask is the use case for creating a backend task.
type SubmitTask struct {
	submitter domain.TaskSubmitter
	logger    domain.Logger
}

// NewSubmitTask creates a new SubmitTask use case.
func NewSubmitTask(submitter domain.TaskSubmitter, logger domain.Logger) *SubmitTask {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &SubmitTask{submitter: submitter, logger: logger}
}

// Execute submits the task.
func (uc *SubmitTask) Execute(ctx context.Context, in SubmitTaskInput) (*SubmitTaskOutput, error) {
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, in.Kind)
	}
	created, err := uc.submitter.SubmitTask(ctx, in.Kind, in.Body)
	if err != nil {
		return nil, fmt.Errorf("submit %s task: %w", in.Kind, err)
	}
	uc.logger.Info(created.TaskID, "usecase", fmt.Sprintf("%s task submitted (%s)", in.Kind, created.Status))
	return &SubmitTaskOutput{Created: *created}, nil
}
