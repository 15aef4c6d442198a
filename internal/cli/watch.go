package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/tui"
)

// newWatchCommand creates the watch command for the live dashboard.
func newWatchCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live dashboard",
		Long: `Open the live dashboard.

The dashboard shows the push channel state, the backend queue, whether the
record cache is being rebuilt, and every tracked task with its elapsed time.
Finished tasks disappear after the dismiss delay ([sync] dismiss_delay_sec).

Keys:
  j/k, up/down  Select a task
  d             Dismiss the selected task
  r             Refresh the cache status
  q, ctrl+c     Quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return launchWatchFunc(cmd.Context(), c)
		},
	}
	return cmd
}

// launchWatch runs the dashboard on a live session until the user quits.
// Changes to the project config file are applied while it runs.
func launchWatch(ctx context.Context, c *app.Container) error {
	if c == nil {
		return errors.New("no container")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := c.NewLiveSession()
	if err != nil {
		return err
	}
	defer session.Teardown()

	go func() {
		if err := c.WatchConfig(ctx, session.ApplyConfig); err != nil {
			c.Logger.Warn("config watcher stopped", "error", err)
		}
	}()

	model := tui.New(session, c.Clock)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
