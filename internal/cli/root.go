// Package cli provides the command-line interface for adr-sync.
package cli

import (
	"fmt"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
)

// launchWatchFunc is a function variable for launching the dashboard, allowing it to be mocked in tests.
var launchWatchFunc = launchWatch

// NewRootCommand creates the root command for adr-sync.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "adr-sync",
		Short: "Live status client for the decision record backend",
		Long: `adr-sync keeps a live view of work running on the decision record backend.

It listens on the backend's push channel for queue and task updates, polls
the status endpoint of every task it started until the task finishes, and
removes finished tasks from the view after a short delay.

Running adr-sync without a subcommand opens the live dashboard (same as watch).`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.AppConfig == nil {
				return nil
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return launchWatchFunc(cmd.Context(), c)
		},
	}

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Commands:"},
	)

	// Setup commands
	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	devserverCmd := newDevserverCommand(c)
	devserverCmd.GroupID = groupSetup

	// Task commands
	watchCmd := newWatchCommand(c)
	watchCmd.GroupID = groupTask

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupTask

	submitCmd := newSubmitCommand(c)
	submitCmd.GroupID = groupTask

	trackCmd := newTrackCommand(c)
	trackCmd.GroupID = groupTask

	root.AddCommand(
		configCmd,
		devserverCmd,
		watchCmd,
		statusCmd,
		submitCmd,
		trackCmd,
	)

	return root
}
