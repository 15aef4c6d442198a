package domain

import (
	"context"
	"io"
)

// ExecCommand represents an external command to be executed.
// This type is used to pass command information between layers
// without exposing implementation details.
type ExecCommand struct {
	Program string
	Dir     string
	Args    []string
}

// NewCommand creates a command that runs program directly.
func NewCommand(program string, args []string, dir string) *ExecCommand {
	return &ExecCommand{Program: program, Args: args, Dir: dir}
}

// NewShellCommand creates a command that runs script with sh -c.
func NewShellCommand(script, dir string) *ExecCommand {
	return &ExecCommand{
		Program: "sh",
		Args:    []string{"-c", script},
		Dir:     dir,
	}
}

// CommandExecutor runs external commands.
type CommandExecutor interface {
	// Execute runs the command and returns its combined output.
	Execute(cmd *ExecCommand) ([]byte, error)

	// ExecuteWithContext runs the command with custom stdout/stderr writers.
	ExecuteWithContext(ctx context.Context, cmd *ExecCommand, stdout, stderr io.Writer) error
}
