package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) (*Container, *testutil.FakePushDialer, *testutil.MockBackend) {
	t.Helper()
	dialer := testutil.NewFakePushDialer()
	backend := testutil.NewMockBackend()
	c := NewWithDeps(Config{WorkDir: t.TempDir()}, domain.NewDefaultConfig(), backend, dialer,
		domain.RealClock{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, dialer, backend
}

func TestNew_LoadsProjectConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	content := "[server]\nbase_url = \"http://backend:9000\"\n\n[log]\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "logs")) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ProjectConfigFileName), []byte(content), 0o600))

	c, err := New(dir)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "http://backend:9000", c.AppConfig.Server.BaseURL)
	assert.Equal(t, filepath.Join(dir, "logs"), c.Config.LogDir)
	assert.NotNil(t, c.Backend)
	assert.NotNil(t, c.Dialer)
}

func TestNew_DefaultLogDirUsesStateHome(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", state)

	c, err := New(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, domain.DefaultLogDir(state), c.Config.LogDir)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ProjectConfigFileName),
		[]byte("[server]\nbase_url = \"ftp://backend\"\n"), 0o600))

	_, err := New(dir)
	assert.Error(t, err)
}

func TestNewLiveSession_MountAndTeardown(t *testing.T) {
	c, dialer, backend := newTestContainer(t)
	backend.Queue = &domain.QueueStatus{Total: 2, WorkersOnline: 1}

	session, err := c.NewLiveSession()
	require.NoError(t, err)
	session.Mount()

	require.Eventually(t, func() bool { return dialer.Count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ws://localhost:8001/ws", dialer.URLs[0])
	require.Eventually(t, func() bool {
		return session.Snapshot().Queue.Total == 2
	}, time.Second, 5*time.Millisecond)

	dialer.Last().Accept()
	require.Eventually(t, func() bool {
		return session.Snapshot().Connection == domain.ConnOpen
	}, time.Second, 5*time.Millisecond)

	session.Teardown()
	assert.Equal(t, domain.ConnClosed, session.Snapshot().Connection)
	assert.True(t, dialer.Last().IsClosed())

	// A second teardown returns immediately.
	session.Teardown()
}

func TestNewLiveSession_RequiresPushURL(t *testing.T) {
	c, _, _ := newTestContainer(t)
	c.AppConfig.Server.BaseURL = ""

	_, err := c.NewLiveSession()
	assert.ErrorIs(t, err, domain.ErrNoBaseURL)
}

func TestLiveSession_ApplyConfig(t *testing.T) {
	c, _, _ := newTestContainer(t)
	events := &testutil.RecordingLogger{}
	c.EventLog = events
	session, err := c.NewLiveSession()
	require.NoError(t, err)

	cfg := domain.NewDefaultConfig()
	cfg.Sync.DismissDelaySec = 42
	session.ApplyConfig(cfg)
	session.Teardown()

	var msgs []string
	for _, e := range events.Entries {
		msgs = append(msgs, e.Msg)
	}
	assert.Contains(t, msgs, "dismiss delay set to 42s")
}

func TestWatchConfig_NoLoaderReturns(t *testing.T) {
	c, _, _ := newTestContainer(t)
	assert.NoError(t, c.WatchConfig(t.Context(), func(*domain.Config) {}))
}
