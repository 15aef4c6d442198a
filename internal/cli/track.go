package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/usecase"
)

// trackOptions are the flags shared by track and submit.
type trackOptions struct {
	Command string
	Timeout int
}

func (o *trackOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Command, "command", "c", "", "Command template to execute on status change")
	cmd.Flags().IntVarP(&o.Timeout, "timeout", "t", 0, "Timeout in seconds (0 = no timeout)")
}

// newTrackCommand creates the track command for following an existing task.
func newTrackCommand(c *app.Container) *cobra.Command {
	var opts trackOptions

	cmd := &cobra.Command{
		Use:   "track <KIND> <TASK_ID>",
		Short: "Follow a task until it finishes",
		Long: `Follow a backend task until it reaches a terminal status.

The task's status endpoint is polled and the push channel is watched; every
change is printed with the time elapsed since tracking began. When a command
template is given it runs on every status change.

Command Template:
  The command template can use the following variables:
    {{.TaskID}}    - Task ID
    {{.Kind}}      - Task kind
    {{.OldStatus}} - Previous status
    {{.NewStatus}} - New status
    {{.Message}}   - Status message

Exit status:
  0  completed (or interrupted with Ctrl+C)
  1  failed, revoked, or timed out

Examples:
  # Follow a generation task
  adr-sync track generation 3f2a9c

  # Notify on every change
  adr-sync track analysis 3f2a9c --command 'notify-send "{{.TaskID}}: {{.NewStatus}}"'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			taskID := args[1]

			resp, err := c.Backend.FetchTaskStatus(cmd.Context(), taskID, kind)
			if err != nil {
				return fmt.Errorf("read task %s: %w", taskID, err)
			}
			created := domain.TaskCreated{
				TaskID:  taskID,
				Status:  resp.Status,
				Message: resp.DisplayMessage(),
			}
			return runTrack(cmd, c, kind, created, opts)
		},
	}

	opts.register(cmd)

	return cmd
}

// runTrack follows created on a fresh live session until it finishes.
func runTrack(cmd *cobra.Command, c *app.Container, kind domain.TaskKind, created domain.TaskCreated, opts trackOptions) error {
	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := c.NewLiveSession()
	if err != nil {
		return err
	}

	uc := c.TrackTaskUseCase(session, cmd.OutOrStdout(), cmd.ErrOrStderr())
	out, err := uc.Execute(ctx, usecase.TrackTaskInput{
		CommandTemplate: opts.Command,
		Created:         created,
		Kind:            kind,
		Timeout:         time.Duration(opts.Timeout) * time.Second,
	})
	if err != nil {
		return err
	}
	if out.Final.Status == domain.StatusCompleted {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s completed\n", out.Final.ID)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
