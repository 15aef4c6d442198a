// Package executor provides command execution functionality.
package executor

import (
	"context"
	"io"
	"os/exec"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Client implements domain.CommandExecutor interface.
type Client struct{}

// NewClient creates a new command executor client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.CommandExecutor interface.
var _ domain.CommandExecutor = (*Client)(nil)

// Execute runs the command and returns its combined output.
func (c *Client) Execute(cmd *domain.ExecCommand) ([]byte, error) {
	// #nosec G204 - hook commands are configured by the user running adr-sync
	execCmd := exec.Command(cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	return execCmd.CombinedOutput()
}

// ExecuteWithContext runs a command with context and custom stdout/stderr writers.
func (c *Client) ExecuteWithContext(ctx context.Context, cmd *domain.ExecCommand, stdout, stderr io.Writer) error {
	// #nosec G204 - hook commands are configured by the user running adr-sync
	execCmd := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	return execCmd.Run()
}
