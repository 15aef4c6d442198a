package executor

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	client := NewClient()

	t.Run("executes simple echo command", func(t *testing.T) {
		output, err := client.Execute(domain.NewShellCommand("echo hello", ""))
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(output))
	})

	t.Run("executes command in specified directory", func(t *testing.T) {
		dir := t.TempDir()
		output, err := client.Execute(domain.NewShellCommand("pwd", dir))
		require.NoError(t, err)
		assert.Contains(t, strings.TrimSpace(string(output)), dir)
	})

	t.Run("returns error for non-existent command", func(t *testing.T) {
		_, err := client.Execute(domain.NewCommand("nonexistent-command-xyz", nil, ""))
		require.Error(t, err)
	})

	t.Run("returns error for failing command", func(t *testing.T) {
		_, err := client.Execute(domain.NewShellCommand("exit 1", ""))
		require.Error(t, err)
	})
}

func TestClient_ExecuteWithContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}

	client := NewClient()

	t.Run("writes to the given streams", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := client.ExecuteWithContext(context.Background(), domain.NewShellCommand("echo out; echo err >&2", ""), &stdout, &stderr)
		require.NoError(t, err)
		assert.Equal(t, "out\n", stdout.String())
		assert.Equal(t, "err\n", stderr.String())
	})

	t.Run("cancelled context stops the command", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := client.ExecuteWithContext(ctx, domain.NewShellCommand("sleep 5", ""), &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
	})
}
